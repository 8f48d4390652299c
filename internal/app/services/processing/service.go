package processing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/processing"
	inventorysvc "github.com/R3E-Network/farm_backoffice/internal/app/services/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/google/uuid"
)

// Stock is the part of the inventory service processing drives.
type Stock interface {
	Receive(ctx context.Context, mv inventorysvc.Movement) (inventory.Item, error)
	Issue(ctx context.Context, mv inventorysvc.Movement) (inventory.Item, error)
}

// Ledger books processing costs.
type Ledger interface {
	RecordExpense(ctx context.Context, e accounting.Entry) (accounting.Entry, error)
}

// Service records processing runs that turn one stored product into another.
type Service struct {
	members storage.MemberStore
	store   storage.ProcessingStore
	stock   Stock
	ledger  Ledger
	log     *logger.Logger
}

// New constructs a processing service. ledger may be nil.
func New(members storage.MemberStore, store storage.ProcessingStore, stock Stock, ledger Ledger, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("processing")
	}
	return &Service{members: members, store: store, stock: stock, ledger: ledger, log: log}
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "processing", Domain: "inventory", Layer: service.LayerChain, Capabilities: []string{"consume", "produce", "expenses"}}
}

// Record consumes the input stock, persists the run, receives the output at
// the consumed value plus the processing cost and books that cost. A shortage
// of input fails before anything is written.
func (s *Service) Record(ctx context.Context, r processing.Run) (processing.Run, error) {
	r.MemberID = strings.TrimSpace(r.MemberID)
	r.InputProduct = strings.ToLower(strings.TrimSpace(r.InputProduct))
	r.OutputProduct = strings.ToLower(strings.TrimSpace(r.OutputProduct))
	r.Notes = strings.TrimSpace(r.Notes)
	r.ConsumeItemID = ""
	r.ProduceItemID = ""
	if r.ProcessedOn.IsZero() {
		r.ProcessedOn = time.Now().UTC()
	}
	if err := s.validate(ctx, r); err != nil {
		return processing.Run{}, err
	}

	r.ID = uuid.NewString()
	ref := inventory.RefProcessing + ":" + r.ID

	consumed, err := s.stock.Issue(ctx, inventorysvc.Movement{
		MemberID:   r.MemberID,
		Product:    r.InputProduct,
		Quantity:   r.InputQuantity,
		Reference:  ref,
		OccurredOn: r.ProcessedOn,
	})
	if err != nil {
		return processing.Run{}, err
	}
	r.ConsumeItemID = consumed.ID

	r, err = s.store.CreateProcessingRun(ctx, r)
	if err != nil {
		s.log.WithError(err).
			WithField("item_id", consumed.ID).
			Warn("processing run not persisted after input was issued")
		return processing.Run{}, err
	}
	s.log.WithField("run_id", r.ID).
		WithField("member_id", r.MemberID).
		WithField("type", r.Type).
		WithField("input", r.InputProduct).
		WithField("output", r.OutputProduct).
		Info("processing run recorded")

	produced, err := s.stock.Receive(ctx, inventorysvc.Movement{
		MemberID:   r.MemberID,
		Product:    r.OutputProduct,
		Quantity:   r.OutputQuantity,
		UnitCost:   (consumed.Value + r.ProcessingCost) / r.OutputQuantity,
		Reference:  ref,
		OccurredOn: r.ProcessedOn,
	})
	if err != nil {
		s.log.WithError(err).
			WithField("run_id", r.ID).
			Warn("processing output not received")
		return r, fmt.Errorf("receive output of run %s: %w", r.ID, err)
	}
	r.ProduceItemID = produced.ID
	updated, err := s.store.UpdateProcessingRun(ctx, r)
	if err != nil {
		s.log.WithError(err).
			WithField("run_id", r.ID).
			Warn("output item not linked to processing run")
		return r, err
	}
	r = updated

	if r.ProcessingCost > 0 && s.ledger != nil {
		if _, err := s.ledger.RecordExpense(ctx, accounting.Entry{
			MemberID:    r.MemberID,
			Category:    accounting.CategoryProcessing,
			Amount:      r.ProcessingCost,
			Description: fmt.Sprintf("%s %s into %s", r.Type, r.InputProduct, r.OutputProduct),
			Reference:   ref,
			OccurredOn:  r.ProcessedOn,
		}); err != nil {
			s.log.WithError(err).
				WithField("run_id", r.ID).
				Warn("processing expense not recorded")
			return r, fmt.Errorf("record processing expense for run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func (s *Service) validate(ctx context.Context, r processing.Run) error {
	if err := service.RequireMember(ctx, s.members, r.MemberID); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return service.Invalid("type", "%q is not a known processing type", r.Type)
	}
	if r.InputProduct == "" {
		return service.Required("input_product")
	}
	if r.OutputProduct == "" {
		return service.Required("output_product")
	}
	if err := service.Positive("input_quantity", r.InputQuantity); err != nil {
		return err
	}
	if err := service.Positive("output_quantity", r.OutputQuantity); err != nil {
		return err
	}
	if err := service.NonNegative("processing_cost", r.ProcessingCost); err != nil {
		return err
	}
	if r.Type != processing.TypePackaging && r.Type != processing.TypeOther && r.OutputQuantity > r.InputQuantity+service.Epsilon {
		return service.Invalid("output_quantity", "cannot exceed input_quantity for %s", r.Type)
	}
	return nil
}

// Get returns a run owned by memberID.
func (s *Service) Get(ctx context.Context, memberID, id string) (processing.Run, error) {
	r, err := s.store.GetProcessingRun(ctx, id)
	if err != nil {
		return processing.Run{}, err
	}
	if err := service.Owned("processing run", id, r.MemberID, memberID); err != nil {
		return processing.Run{}, err
	}
	return r, nil
}

// List returns a member's runs, optionally of one type.
func (s *Service) List(ctx context.Context, memberID string, typ processing.Type) ([]processing.Run, error) {
	all, err := s.store.ListProcessingRuns(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		return all, nil
	}
	var result []processing.Run
	for _, r := range all {
		if r.Type == typ {
			result = append(result, r)
		}
	}
	return result, nil
}
