package parcels

import (
	"context"
	"fmt"
	"strings"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// Service manages land parcels.
type Service struct {
	members    storage.MemberStore
	zones      storage.ZoneStore
	store      storage.ParcelStore
	activities storage.ActivityStore
	log        *logger.Logger
}

// New constructs a parcel service.
func New(members storage.MemberStore, zones storage.ZoneStore, store storage.ParcelStore, activities storage.ActivityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("parcels")
	}
	return &Service{members: members, zones: zones, store: store, activities: activities, log: log}
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "parcels", Domain: "farm", Layer: service.LayerRegistry, Capabilities: []string{"leases"}}
}

// Create registers a parcel. Codes are unique per member.
func (s *Service) Create(ctx context.Context, p parcel.Parcel) (parcel.Parcel, error) {
	p.ID = ""
	normalize(&p)
	if err := s.validate(ctx, p); err != nil {
		return parcel.Parcel{}, err
	}
	p, err := s.store.CreateParcel(ctx, p)
	if err != nil {
		return parcel.Parcel{}, err
	}
	s.log.WithField("parcel_id", p.ID).
		WithField("member_id", p.MemberID).
		WithField("code", p.Code).
		Info("parcel created")
	return p, nil
}

// Update replaces the mutable fields of a parcel.
func (s *Service) Update(ctx context.Context, memberID string, p parcel.Parcel) (parcel.Parcel, error) {
	existing, err := s.Get(ctx, memberID, p.ID)
	if err != nil {
		return parcel.Parcel{}, err
	}
	p.MemberID = existing.MemberID
	p.CreatedAt = existing.CreatedAt
	normalize(&p)
	if err := s.validate(ctx, p); err != nil {
		return parcel.Parcel{}, err
	}
	updated, err := s.store.UpdateParcel(ctx, p)
	if err != nil {
		return parcel.Parcel{}, err
	}
	s.log.WithField("parcel_id", updated.ID).
		WithField("member_id", updated.MemberID).
		Info("parcel updated")
	return updated, nil
}

func normalize(p *parcel.Parcel) {
	p.MemberID = strings.TrimSpace(p.MemberID)
	p.ZoneID = strings.TrimSpace(p.ZoneID)
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	p.Crop = strings.TrimSpace(p.Crop)
	if p.Tenure == "" {
		p.Tenure = parcel.TenureOwned
	}
	if p.Tenure == parcel.TenureOwned {
		p.AnnualLeaseCost = 0
	}
}

func (s *Service) validate(ctx context.Context, p parcel.Parcel) error {
	if err := service.RequireMember(ctx, s.members, p.MemberID); err != nil {
		return err
	}
	if p.Code == "" {
		return service.Required("code")
	}
	if err := service.Positive("area_hectares", p.AreaHectares); err != nil {
		return err
	}
	switch p.Tenure {
	case parcel.TenureOwned:
	case parcel.TenureLeased:
		if err := service.Positive("annual_lease_cost", p.AnnualLeaseCost); err != nil {
			return err
		}
	default:
		return service.Invalid("tenure", "must be owned or leased")
	}
	if p.ZoneID != "" && s.zones != nil {
		z, err := s.zones.GetZone(ctx, p.ZoneID)
		if err != nil {
			return fmt.Errorf("zone validation failed: %w", err)
		}
		if err := service.Owned("zone", p.ZoneID, z.MemberID, p.MemberID); err != nil {
			return fmt.Errorf("zone validation failed: %w", err)
		}
	}
	existing, err := s.store.ListParcels(ctx, p.MemberID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID != p.ID && other.Code == p.Code {
			return fmt.Errorf("parcel code %q already used: %w", p.Code, storage.ErrConflict)
		}
	}
	return nil
}

// Get returns a parcel owned by memberID.
func (s *Service) Get(ctx context.Context, memberID, id string) (parcel.Parcel, error) {
	p, err := s.store.GetParcel(ctx, id)
	if err != nil {
		return parcel.Parcel{}, err
	}
	if err := service.Owned("parcel", id, p.MemberID, memberID); err != nil {
		return parcel.Parcel{}, err
	}
	return p, nil
}

// List returns a member's parcels, optionally limited to one zone.
func (s *Service) List(ctx context.Context, memberID, zoneID string) ([]parcel.Parcel, error) {
	all, err := s.store.ListParcels(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if zoneID == "" {
		return all, nil
	}
	var result []parcel.Parcel
	for _, p := range all {
		if p.ZoneID == zoneID {
			result = append(result, p)
		}
	}
	return result, nil
}

// Delete removes a parcel that no activity references.
func (s *Service) Delete(ctx context.Context, memberID, id string) error {
	p, err := s.Get(ctx, memberID, id)
	if err != nil {
		return err
	}
	if s.activities != nil {
		activities, err := s.activities.ListActivities(ctx, p.MemberID)
		if err != nil {
			return err
		}
		for _, a := range activities {
			if a.ParcelID == id {
				return fmt.Errorf("parcel %s has recorded activities: %w", p.Code, service.ErrInUse)
			}
		}
	}
	if err := s.store.DeleteParcel(ctx, id); err != nil {
		return err
	}
	s.log.WithField("parcel_id", id).
		WithField("member_id", p.MemberID).
		Info("parcel deleted")
	return nil
}
