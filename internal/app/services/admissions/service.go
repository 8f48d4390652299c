package admissions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	inventorysvc "github.com/R3E-Network/farm_backoffice/internal/app/services/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// Stock is the part of the inventory service admissions drive.
type Stock interface {
	Receive(ctx context.Context, mv inventorysvc.Movement) (inventory.Item, error)
	Issue(ctx context.Context, mv inventorysvc.Movement) (inventory.Item, error)
}

// Service records produce entering a member's store and posts it to the
// stock ledger.
type Service struct {
	members    storage.MemberStore
	parcels    storage.ParcelStore
	harvesters storage.HarvesterStore
	activities storage.ActivityStore
	store      storage.AdmissionStore
	stock      Stock
	log        *logger.Logger
}

// New constructs an admission service.
func New(members storage.MemberStore, store storage.AdmissionStore, stock Stock, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("admissions")
	}
	return &Service{members: members, store: store, stock: stock, log: log}
}

// AttachDependencies wires the stores used to validate references and to
// release the activity that produced an admission when it is deleted.
func (s *Service) AttachDependencies(parcels storage.ParcelStore, harvesters storage.HarvesterStore, activities storage.ActivityStore) {
	s.parcels = parcels
	s.harvesters = harvesters
	s.activities = activities
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "admissions", Domain: "inventory", Layer: service.LayerChain, Capabilities: []string{"harvest", "purchase", "transfer"}}
}

// Admit persists an admission and receives its quantity into stock. If the
// stock posting fails the admission stays recorded without an inventory item.
func (s *Service) Admit(ctx context.Context, a admission.Admission) (admission.Admission, error) {
	a.ID = ""
	a.InventoryItemID = ""
	a.MemberID = strings.TrimSpace(a.MemberID)
	a.Product = strings.ToLower(strings.TrimSpace(a.Product))
	a.Supplier = strings.TrimSpace(a.Supplier)
	a.Grade = strings.TrimSpace(a.Grade)
	a.Unit = strings.TrimSpace(a.Unit)
	if a.Unit == "" {
		a.Unit = "kg"
	}
	if a.AdmittedOn.IsZero() {
		a.AdmittedOn = time.Now().UTC()
	}
	if err := s.validate(ctx, a); err != nil {
		return admission.Admission{}, err
	}

	a, err := s.store.CreateAdmission(ctx, a)
	if err != nil {
		return admission.Admission{}, err
	}
	s.log.WithField("admission_id", a.ID).
		WithField("member_id", a.MemberID).
		WithField("product", a.Product).
		WithField("quantity", a.Quantity).
		Info("admission recorded")

	item, err := s.stock.Receive(ctx, inventorysvc.Movement{
		MemberID:   a.MemberID,
		Product:    a.Product,
		Quantity:   a.Quantity,
		UnitCost:   a.UnitCost,
		Reference:  inventory.RefAdmission + ":" + a.ID,
		OccurredOn: a.AdmittedOn,
	})
	if err != nil {
		s.log.WithError(err).
			WithField("admission_id", a.ID).
			Warn("admission not posted to inventory")
		return a, fmt.Errorf("receive admission %s into inventory: %w", a.ID, err)
	}

	a.InventoryItemID = item.ID
	updated, err := s.store.UpdateAdmission(ctx, a)
	if err != nil {
		s.log.WithError(err).
			WithField("admission_id", a.ID).
			WithField("item_id", item.ID).
			Warn("inventory item not linked to admission")
		return a, err
	}
	return updated, nil
}

func (s *Service) validate(ctx context.Context, a admission.Admission) error {
	if err := service.RequireMember(ctx, s.members, a.MemberID); err != nil {
		return err
	}
	if !a.Source.Valid() {
		return service.Invalid("source", "must be harvest, purchase or transfer")
	}
	if a.Product == "" {
		return service.Required("product")
	}
	if err := service.Positive("quantity", a.Quantity); err != nil {
		return err
	}
	if err := service.NonNegative("unit_cost", a.UnitCost); err != nil {
		return err
	}
	if a.Source == admission.SourcePurchase && a.Supplier == "" {
		return service.Required("supplier")
	}
	if a.ParcelID != "" && s.parcels != nil {
		p, err := s.parcels.GetParcel(ctx, a.ParcelID)
		if err != nil {
			return fmt.Errorf("parcel validation failed: %w", err)
		}
		if err := service.Owned("parcel", a.ParcelID, p.MemberID, a.MemberID); err != nil {
			return fmt.Errorf("parcel validation failed: %w", err)
		}
	}
	if a.HarvesterID != "" && s.harvesters != nil {
		h, err := s.harvesters.GetHarvester(ctx, a.HarvesterID)
		if err != nil {
			return fmt.Errorf("harvester validation failed: %w", err)
		}
		if err := service.Owned("harvester", a.HarvesterID, h.MemberID, a.MemberID); err != nil {
			return fmt.Errorf("harvester validation failed: %w", err)
		}
	}
	return nil
}

// Get returns an admission owned by memberID.
func (s *Service) Get(ctx context.Context, memberID, id string) (admission.Admission, error) {
	a, err := s.store.GetAdmission(ctx, id)
	if err != nil {
		return admission.Admission{}, err
	}
	if err := service.Owned("admission", id, a.MemberID, memberID); err != nil {
		return admission.Admission{}, err
	}
	return a, nil
}

// List returns a member's admissions matching filter.
func (s *Service) List(ctx context.Context, memberID string, filter admission.Filter) ([]admission.Admission, error) {
	all, err := s.store.ListAdmissions(ctx, memberID)
	if err != nil {
		return nil, err
	}
	product := strings.ToLower(strings.TrimSpace(filter.Product))
	result := make([]admission.Admission, 0, len(all))
	for _, a := range all {
		if product != "" && a.Product != product {
			continue
		}
		if filter.Source != "" && a.Source != filter.Source {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

// Delete removes an admission after posting a reversing outbound line. It
// fails with inventory.ErrInsufficientStock when the stock already left.
func (s *Service) Delete(ctx context.Context, memberID, id string) error {
	a, err := s.Get(ctx, memberID, id)
	if err != nil {
		return err
	}
	if a.InventoryItemID != "" {
		if _, err := s.stock.Issue(ctx, inventorysvc.Movement{
			MemberID:  a.MemberID,
			Product:   a.Product,
			Quantity:  a.Quantity,
			Reference: inventory.RefReversal + ":" + inventory.RefAdmission + ":" + a.ID,
		}); err != nil {
			return fmt.Errorf("reverse admission %s: %w", a.ID, err)
		}
	}
	if err := s.store.DeleteAdmission(ctx, id); err != nil {
		return err
	}
	if a.ActivityID != "" && s.activities != nil {
		if act, err := s.activities.GetActivity(ctx, a.ActivityID); err == nil && act.AdmissionID == a.ID {
			act.AdmissionID = ""
			if _, err := s.activities.UpdateActivity(ctx, act); err != nil {
				s.log.WithError(err).
					WithField("activity_id", act.ID).
					Warn("activity not released after admission delete")
			}
		}
	}
	s.log.WithField("admission_id", id).
		WithField("member_id", a.MemberID).
		Info("admission deleted")
	return nil
}
