package zones

import (
	"context"
	"fmt"
	"strings"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// Service manages the zones of each member's farm.
type Service struct {
	members    storage.MemberStore
	store      storage.ZoneStore
	parcels    storage.ParcelStore
	harvesters storage.HarvesterStore
	log        *logger.Logger
}

// New constructs a zone service. The parcel and harvester stores are consulted
// before a zone is deleted.
func New(members storage.MemberStore, store storage.ZoneStore, parcels storage.ParcelStore, harvesters storage.HarvesterStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("zones")
	}
	return &Service{members: members, store: store, parcels: parcels, harvesters: harvesters, log: log}
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "zones", Domain: "farm", Layer: service.LayerRegistry}
}

// Create registers a zone. Names are unique per member, ignoring case.
func (s *Service) Create(ctx context.Context, z zone.Zone) (zone.Zone, error) {
	z.MemberID = strings.TrimSpace(z.MemberID)
	z.Name = strings.TrimSpace(z.Name)
	z.Description = strings.TrimSpace(z.Description)
	z.ID = ""

	if err := s.validate(ctx, z); err != nil {
		return zone.Zone{}, err
	}
	z, err := s.store.CreateZone(ctx, z)
	if err != nil {
		return zone.Zone{}, err
	}
	s.log.WithField("zone_id", z.ID).
		WithField("member_id", z.MemberID).
		Info("zone created")
	return z, nil
}

// Update replaces the mutable fields of a zone.
func (s *Service) Update(ctx context.Context, memberID string, z zone.Zone) (zone.Zone, error) {
	existing, err := s.Get(ctx, memberID, z.ID)
	if err != nil {
		return zone.Zone{}, err
	}
	existing.Name = strings.TrimSpace(z.Name)
	existing.Description = strings.TrimSpace(z.Description)
	existing.AreaHectares = z.AreaHectares

	if err := s.validate(ctx, existing); err != nil {
		return zone.Zone{}, err
	}
	updated, err := s.store.UpdateZone(ctx, existing)
	if err != nil {
		return zone.Zone{}, err
	}
	s.log.WithField("zone_id", updated.ID).
		WithField("member_id", updated.MemberID).
		Info("zone updated")
	return updated, nil
}

func (s *Service) validate(ctx context.Context, z zone.Zone) error {
	if err := service.RequireMember(ctx, s.members, z.MemberID); err != nil {
		return err
	}
	if z.Name == "" {
		return service.Required("name")
	}
	if err := service.NonNegative("area_hectares", z.AreaHectares); err != nil {
		return err
	}
	existing, err := s.store.ListZones(ctx, z.MemberID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID != z.ID && strings.EqualFold(other.Name, z.Name) {
			return fmt.Errorf("zone name %q already used: %w", z.Name, storage.ErrConflict)
		}
	}
	return nil
}

// Get returns a zone owned by memberID.
func (s *Service) Get(ctx context.Context, memberID, id string) (zone.Zone, error) {
	z, err := s.store.GetZone(ctx, id)
	if err != nil {
		return zone.Zone{}, err
	}
	if err := service.Owned("zone", id, z.MemberID, memberID); err != nil {
		return zone.Zone{}, err
	}
	return z, nil
}

// List returns the zones of a member.
func (s *Service) List(ctx context.Context, memberID string) ([]zone.Zone, error) {
	return s.store.ListZones(ctx, memberID)
}

// Delete removes a zone that no parcel or harvester references.
func (s *Service) Delete(ctx context.Context, memberID, id string) error {
	z, err := s.Get(ctx, memberID, id)
	if err != nil {
		return err
	}
	if s.parcels != nil {
		parcels, err := s.parcels.ListParcels(ctx, z.MemberID)
		if err != nil {
			return err
		}
		for _, p := range parcels {
			if p.ZoneID == id {
				return fmt.Errorf("zone %s is referenced by parcel %s: %w", id, p.Code, service.ErrInUse)
			}
		}
	}
	if s.harvesters != nil {
		harvesters, err := s.harvesters.ListHarvesters(ctx, z.MemberID)
		if err != nil {
			return err
		}
		for _, h := range harvesters {
			if h.ZoneID == id {
				return fmt.Errorf("zone %s is referenced by harvester %s: %w", id, h.Name, service.ErrInUse)
			}
		}
	}
	if err := s.store.DeleteZone(ctx, id); err != nil {
		return err
	}
	s.log.WithField("zone_id", id).
		WithField("member_id", z.MemberID).
		Info("zone deleted")
	return nil
}
