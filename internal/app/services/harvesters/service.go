package harvesters

import (
	"context"
	"fmt"
	"strings"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// Service manages the harvesters working for a member.
type Service struct {
	members storage.MemberStore
	zones   storage.ZoneStore
	store   storage.HarvesterStore
	log     *logger.Logger
}

// New constructs a harvester service.
func New(members storage.MemberStore, zones storage.ZoneStore, store storage.HarvesterStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("harvesters")
	}
	return &Service{members: members, zones: zones, store: store, log: log}
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "harvesters", Domain: "farm", Layer: service.LayerRegistry}
}

// Create registers an active harvester.
func (s *Service) Create(ctx context.Context, h harvester.Harvester) (harvester.Harvester, error) {
	h.ID = ""
	h.Active = true
	normalize(&h)
	if err := s.validate(ctx, h); err != nil {
		return harvester.Harvester{}, err
	}
	h, err := s.store.CreateHarvester(ctx, h)
	if err != nil {
		return harvester.Harvester{}, err
	}
	s.log.WithField("harvester_id", h.ID).
		WithField("member_id", h.MemberID).
		Info("harvester created")
	return h, nil
}

// Update replaces the mutable fields of a harvester. The active flag is
// changed through SetActive.
func (s *Service) Update(ctx context.Context, memberID string, h harvester.Harvester) (harvester.Harvester, error) {
	existing, err := s.Get(ctx, memberID, h.ID)
	if err != nil {
		return harvester.Harvester{}, err
	}
	h.MemberID = existing.MemberID
	h.Active = existing.Active
	normalize(&h)
	if err := s.validate(ctx, h); err != nil {
		return harvester.Harvester{}, err
	}
	updated, err := s.store.UpdateHarvester(ctx, h)
	if err != nil {
		return harvester.Harvester{}, err
	}
	s.log.WithField("harvester_id", updated.ID).
		WithField("member_id", updated.MemberID).
		Info("harvester updated")
	return updated, nil
}

// SetActive toggles the active flag.
func (s *Service) SetActive(ctx context.Context, memberID, id string, active bool) (harvester.Harvester, error) {
	h, err := s.Get(ctx, memberID, id)
	if err != nil {
		return harvester.Harvester{}, err
	}
	if h.Active == active {
		return h, nil
	}
	h.Active = active
	h, err = s.store.UpdateHarvester(ctx, h)
	if err != nil {
		return harvester.Harvester{}, err
	}
	s.log.WithField("harvester_id", h.ID).
		WithField("member_id", h.MemberID).
		WithField("active", active).
		Info("harvester state changed")
	return h, nil
}

func normalize(h *harvester.Harvester) {
	h.MemberID = strings.TrimSpace(h.MemberID)
	h.Name = strings.TrimSpace(h.Name)
	h.NationalID = strings.TrimSpace(h.NationalID)
	h.Phone = strings.TrimSpace(h.Phone)
	h.ZoneID = strings.TrimSpace(h.ZoneID)
}

func (s *Service) validate(ctx context.Context, h harvester.Harvester) error {
	if err := service.RequireMember(ctx, s.members, h.MemberID); err != nil {
		return err
	}
	if h.Name == "" {
		return service.Required("name")
	}
	if err := service.NonNegative("rate_per_unit", h.RatePerUnit); err != nil {
		return err
	}
	if h.ZoneID != "" && s.zones != nil {
		z, err := s.zones.GetZone(ctx, h.ZoneID)
		if err != nil {
			return fmt.Errorf("zone validation failed: %w", err)
		}
		if err := service.Owned("zone", h.ZoneID, z.MemberID, h.MemberID); err != nil {
			return fmt.Errorf("zone validation failed: %w", err)
		}
	}
	return nil
}

// Get returns a harvester owned by memberID.
func (s *Service) Get(ctx context.Context, memberID, id string) (harvester.Harvester, error) {
	h, err := s.store.GetHarvester(ctx, id)
	if err != nil {
		return harvester.Harvester{}, err
	}
	if err := service.Owned("harvester", id, h.MemberID, memberID); err != nil {
		return harvester.Harvester{}, err
	}
	return h, nil
}

// List returns the harvesters of a member.
func (s *Service) List(ctx context.Context, memberID string) ([]harvester.Harvester, error) {
	return s.store.ListHarvesters(ctx, memberID)
}

// Delete removes a harvester.
func (s *Service) Delete(ctx context.Context, memberID, id string) error {
	h, err := s.Get(ctx, memberID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteHarvester(ctx, id); err != nil {
		return err
	}
	s.log.WithField("harvester_id", id).
		WithField("member_id", h.MemberID).
		Info("harvester deleted")
	return nil
}
