package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// RefActivity prefixes the references of entries booked for an activity.
const RefActivity = "activity"

// Admitter turns a harvest into an admission.
type Admitter interface {
	Admit(ctx context.Context, a admission.Admission) (admission.Admission, error)
}

// Ledger books activity costs.
type Ledger interface {
	RecordExpense(ctx context.Context, e accounting.Entry) (accounting.Entry, error)
	List(ctx context.Context, memberID string, filter accounting.Filter) ([]accounting.Entry, error)
	Delete(ctx context.Context, memberID, id string) (accounting.Entry, error)
}

// Service records farm activities and drives their side effects: cost
// expenses and, for harvests, an admission into stock.
type Service struct {
	members    storage.MemberStore
	store      storage.ActivityStore
	parcels    storage.ParcelStore
	harvesters storage.HarvesterStore
	admitter   Admitter
	ledger     Ledger
	log        *logger.Logger
}

// New constructs an activity service.
func New(members storage.MemberStore, store storage.ActivityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("activities")
	}
	return &Service{members: members, store: store, log: log}
}

// AttachDependencies wires the stores and services the activity chain uses.
func (s *Service) AttachDependencies(parcels storage.ParcelStore, harvesters storage.HarvesterStore, admitter Admitter, ledger Ledger) {
	s.parcels = parcels
	s.harvesters = harvesters
	s.admitter = admitter
	s.ledger = ledger
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "activities", Domain: "farm", Layer: service.LayerChain, Capabilities: []string{"expenses", "harvest-admission"}}
}

// Record persists an activity, books its costs and admits harvested produce.
// The steps run in order without a transaction; when a later step fails the
// activity is returned together with the error.
func (s *Service) Record(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	a.ID = ""
	a.AdmissionID = ""
	a.MemberID = strings.TrimSpace(a.MemberID)
	a.ParcelID = strings.TrimSpace(a.ParcelID)
	a.HarvesterID = strings.TrimSpace(a.HarvesterID)
	a.Product = strings.ToLower(strings.TrimSpace(a.Product))
	a.Unit = strings.TrimSpace(a.Unit)
	a.Notes = strings.TrimSpace(a.Notes)
	if a.PerformedOn.IsZero() {
		a.PerformedOn = time.Now().UTC()
	}

	h, err := s.validate(ctx, a)
	if err != nil {
		return activity.Activity{}, err
	}

	a, err = s.store.CreateActivity(ctx, a)
	if err != nil {
		return activity.Activity{}, err
	}
	s.log.WithField("activity_id", a.ID).
		WithField("member_id", a.MemberID).
		WithField("type", a.Type).
		Info("activity recorded")

	if err := s.bookCosts(ctx, a); err != nil {
		return a, err
	}

	if a.Type != activity.TypeHarvesting || a.Quantity <= 0 || s.admitter == nil {
		return a, nil
	}
	adm, err := s.admitter.Admit(ctx, admission.Admission{
		MemberID:    a.MemberID,
		Source:      admission.SourceHarvest,
		ActivityID:  a.ID,
		ParcelID:    a.ParcelID,
		HarvesterID: a.HarvesterID,
		Product:     a.Product,
		Quantity:    a.Quantity,
		Unit:        a.Unit,
		UnitCost:    h.RatePerUnit,
		AdmittedOn:  a.PerformedOn,
	})
	if adm.ID != "" {
		a.AdmissionID = adm.ID
		updated, uerr := s.store.UpdateActivity(ctx, a)
		if uerr != nil {
			s.log.WithError(uerr).
				WithField("activity_id", a.ID).
				WithField("admission_id", adm.ID).
				Warn("admission not linked to activity")
			if err == nil {
				err = uerr
			}
		} else {
			a = updated
		}
	}
	if err != nil {
		s.log.WithError(err).
			WithField("activity_id", a.ID).
			Warn("harvest admission failed")
		return a, fmt.Errorf("admit harvest of activity %s: %w", a.ID, err)
	}
	return a, nil
}

func (s *Service) validate(ctx context.Context, a activity.Activity) (harvester.Harvester, error) {
	if err := service.RequireMember(ctx, s.members, a.MemberID); err != nil {
		return harvester.Harvester{}, err
	}
	if !a.Type.Valid() {
		return harvester.Harvester{}, service.Invalid("type", "%q is not a known activity type", a.Type)
	}
	if a.ParcelID == "" {
		return harvester.Harvester{}, service.Required("parcel_id")
	}
	if s.parcels != nil {
		p, err := s.parcels.GetParcel(ctx, a.ParcelID)
		if err != nil {
			return harvester.Harvester{}, fmt.Errorf("parcel validation failed: %w", err)
		}
		if err := service.Owned("parcel", a.ParcelID, p.MemberID, a.MemberID); err != nil {
			return harvester.Harvester{}, fmt.Errorf("parcel validation failed: %w", err)
		}
	}
	for field, v := range map[string]float64{"quantity": a.Quantity, "labor_cost": a.LaborCost, "input_cost": a.InputCost} {
		if err := service.NonNegative(field, v); err != nil {
			return harvester.Harvester{}, err
		}
	}

	if a.Type != activity.TypeHarvesting {
		return harvester.Harvester{}, nil
	}
	if a.HarvesterID == "" {
		return harvester.Harvester{}, service.Required("harvester_id")
	}
	if a.Product == "" {
		return harvester.Harvester{}, service.Required("product")
	}
	if s.harvesters == nil {
		return harvester.Harvester{}, nil
	}
	h, err := s.harvesters.GetHarvester(ctx, a.HarvesterID)
	if err != nil {
		return harvester.Harvester{}, fmt.Errorf("harvester validation failed: %w", err)
	}
	if err := service.Owned("harvester", a.HarvesterID, h.MemberID, a.MemberID); err != nil {
		return harvester.Harvester{}, fmt.Errorf("harvester validation failed: %w", err)
	}
	if !h.Active {
		return harvester.Harvester{}, service.Invalid("harvester_id", "harvester %s is inactive", h.Name)
	}
	return h, nil
}

func (s *Service) bookCosts(ctx context.Context, a activity.Activity) error {
	if s.ledger == nil {
		return nil
	}
	costs := []struct {
		category accounting.Category
		amount   float64
	}{
		{accounting.CategoryLabor, a.LaborCost},
		{accounting.CategoryInputs, a.InputCost},
	}
	for _, c := range costs {
		if c.amount <= 0 {
			continue
		}
		if _, err := s.ledger.RecordExpense(ctx, accounting.Entry{
			MemberID:    a.MemberID,
			Category:    c.category,
			Amount:      c.amount,
			Description: fmt.Sprintf("%s %s on parcel %s", a.Type, c.category, a.ParcelID),
			Reference:   RefActivity + ":" + a.ID,
			OccurredOn:  a.PerformedOn,
		}); err != nil {
			s.log.WithError(err).
				WithField("activity_id", a.ID).
				WithField("category", c.category).
				Warn("activity expense not recorded")
			return fmt.Errorf("record %s expense for activity %s: %w", c.category, a.ID, err)
		}
	}
	return nil
}

// reverseCosts reverses every live entry booked for the activity.
func (s *Service) reverseCosts(ctx context.Context, a activity.Activity) error {
	if s.ledger == nil {
		return nil
	}
	entries, err := s.ledger.List(ctx, a.MemberID, accounting.Filter{})
	if err != nil {
		return err
	}
	reversed := make(map[string]bool)
	for _, e := range entries {
		if e.ReversalOf != "" {
			reversed[e.ReversalOf] = true
		}
	}
	ref := RefActivity + ":" + a.ID
	for _, e := range entries {
		if e.Reference != ref || reversed[e.ID] {
			continue
		}
		if _, err := s.ledger.Delete(ctx, a.MemberID, e.ID); err != nil {
			return fmt.Errorf("reverse entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// Update carries the editable fields of a non-harvest activity.
type Update struct {
	Notes       *string    `json:"notes,omitempty"`
	LaborCost   *float64   `json:"labor_cost,omitempty"`
	InputCost   *float64   `json:"input_cost,omitempty"`
	PerformedOn *time.Time `json:"performed_on,omitempty"`
}

// Update edits a non-harvest activity. Cost changes reverse the previously
// booked expenses and book the new amounts.
func (s *Service) Update(ctx context.Context, memberID, id string, upd Update) (activity.Activity, error) {
	a, err := s.Get(ctx, memberID, id)
	if err != nil {
		return activity.Activity{}, err
	}
	if a.Type == activity.TypeHarvesting {
		return activity.Activity{}, fmt.Errorf("harvest activity %s cannot be edited: %w", id, service.ErrLocked)
	}

	costsChanged := false
	if upd.Notes != nil {
		a.Notes = strings.TrimSpace(*upd.Notes)
	}
	if upd.PerformedOn != nil && !upd.PerformedOn.IsZero() {
		a.PerformedOn = upd.PerformedOn.UTC()
	}
	if upd.LaborCost != nil && *upd.LaborCost != a.LaborCost {
		if err := service.NonNegative("labor_cost", *upd.LaborCost); err != nil {
			return activity.Activity{}, err
		}
		a.LaborCost = *upd.LaborCost
		costsChanged = true
	}
	if upd.InputCost != nil && *upd.InputCost != a.InputCost {
		if err := service.NonNegative("input_cost", *upd.InputCost); err != nil {
			return activity.Activity{}, err
		}
		a.InputCost = *upd.InputCost
		costsChanged = true
	}

	a, err = s.store.UpdateActivity(ctx, a)
	if err != nil {
		return activity.Activity{}, err
	}
	s.log.WithField("activity_id", a.ID).
		WithField("member_id", a.MemberID).
		Info("activity updated")

	if costsChanged {
		if err := s.reverseCosts(ctx, a); err != nil {
			return a, err
		}
		if err := s.bookCosts(ctx, a); err != nil {
			return a, err
		}
	}
	return a, nil
}

// Get returns an activity owned by memberID.
func (s *Service) Get(ctx context.Context, memberID, id string) (activity.Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return activity.Activity{}, err
	}
	if err := service.Owned("activity", id, a.MemberID, memberID); err != nil {
		return activity.Activity{}, err
	}
	return a, nil
}

// List returns a member's activities matching filter.
func (s *Service) List(ctx context.Context, memberID string, filter activity.Filter) ([]activity.Activity, error) {
	all, err := s.store.ListActivities(ctx, memberID)
	if err != nil {
		return nil, err
	}
	result := make([]activity.Activity, 0, len(all))
	for _, a := range all {
		if filter.Match(a) {
			result = append(result, a)
		}
	}
	return result, nil
}

// Delete removes an activity and reverses its expenses. Harvests that
// produced an admission are locked until the admission is deleted.
func (s *Service) Delete(ctx context.Context, memberID, id string) error {
	a, err := s.Get(ctx, memberID, id)
	if err != nil {
		return err
	}
	if a.Type == activity.TypeHarvesting && a.AdmissionID != "" {
		return fmt.Errorf("activity %s produced admission %s: %w", id, a.AdmissionID, service.ErrLocked)
	}
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return err
	}
	s.log.WithField("activity_id", id).
		WithField("member_id", a.MemberID).
		Info("activity deleted")
	if err := s.reverseCosts(ctx, a); err != nil {
		s.log.WithError(err).
			WithField("activity_id", id).
			Warn("activity expenses not reversed")
		return err
	}
	return nil
}
