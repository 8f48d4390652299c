package accounting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/metrics"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

// Reference prefixes written by this service.
const (
	RefReversal = "reversal"
	RefLease    = "lease"
)

// reservedRefs are the reference prefixes only the posting chains write.
var reservedRefs = []string{
	RefReversal,
	RefLease,
	"activity",
	inventory.RefAdmission,
	inventory.RefProcessing,
	inventory.RefSale,
}

// ReservedReference reports whether ref uses a prefix owned by the posting
// chains. Manually posted entries may not use one.
func ReservedReference(ref string) bool {
	ref = strings.ToLower(strings.TrimSpace(ref))
	for _, prefix := range reservedRefs {
		if strings.HasPrefix(ref, prefix+":") {
			return true
		}
	}
	return false
}

// Service keeps each member's append-only books. Entries carry the running
// balance (income minus expense) after they are posted.
type Service struct {
	members storage.MemberStore
	store   storage.AccountingStore
	parcels storage.ParcelStore
	log     *logger.Logger

	// mu serialises the read-modify-write of running balances.
	mu sync.Mutex
}

// New constructs an accounting service. The parcel store is only needed for
// lease charges.
func New(members storage.MemberStore, store storage.AccountingStore, parcels storage.ParcelStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounting")
	}
	return &Service{members: members, store: store, parcels: parcels, log: log}
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "accounting",
		Domain:       "accounting",
		Layer:        service.LayerLedger,
		Capabilities: []string{"expenses", "income", "reversals", "leases"},
	}
}

// RecordExpense posts money going out.
func (s *Service) RecordExpense(ctx context.Context, e accounting.Entry) (accounting.Entry, error) {
	e.Kind = accounting.KindExpense
	return s.post(ctx, e)
}

// RecordIncome posts money coming in.
func (s *Service) RecordIncome(ctx context.Context, e accounting.Entry) (accounting.Entry, error) {
	e.Kind = accounting.KindIncome
	return s.post(ctx, e)
}

// RecordManual posts an entry entered by a user. The kind decides the
// direction and chain-owned references are rejected.
func (s *Service) RecordManual(ctx context.Context, e accounting.Entry) (accounting.Entry, error) {
	if ReservedReference(e.Reference) {
		return accounting.Entry{}, service.Invalid("reference", "%q uses a reserved prefix", e.Reference)
	}
	switch e.Kind {
	case accounting.KindIncome:
		return s.RecordIncome(ctx, e)
	case accounting.KindExpense, "":
		return s.RecordExpense(ctx, e)
	default:
		return accounting.Entry{}, service.Invalid("kind", "must be income or expense")
	}
}

func (s *Service) post(ctx context.Context, e accounting.Entry) (accounting.Entry, error) {
	e.ID = ""
	e.ReversalOf = ""
	e.MemberID = strings.TrimSpace(e.MemberID)
	e.Description = strings.TrimSpace(e.Description)
	e.Reference = strings.TrimSpace(e.Reference)
	if e.Category == "" {
		e.Category = accounting.CategoryOther
	}
	if !e.Category.Valid() {
		return accounting.Entry{}, service.Invalid("category", "%q is not a known category", e.Category)
	}
	if err := service.Positive("amount", e.Amount); err != nil {
		return accounting.Entry{}, err
	}
	e.Amount = service.Round2(e.Amount)
	if e.OccurredOn.IsZero() {
		e.OccurredOn = time.Now().UTC()
	}
	if err := service.RequireMember(ctx, s.members, e.MemberID); err != nil {
		return accounting.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postLocked(ctx, e)
}

func (s *Service) postLocked(ctx context.Context, e accounting.Entry) (accounting.Entry, error) {
	balance, err := s.balanceLocked(ctx, e.MemberID)
	if err != nil {
		return accounting.Entry{}, err
	}
	e.RunningBalance = service.Round2(balance + e.Signed())

	e, err = s.store.CreateEntry(ctx, e)
	if err != nil {
		return accounting.Entry{}, err
	}
	metrics.RecordAccountingEntry(string(e.Kind), string(e.Category))
	s.log.WithField("entry_id", e.ID).
		WithField("member_id", e.MemberID).
		WithField("kind", e.Kind).
		WithField("category", e.Category).
		WithField("amount", e.Amount).
		Info("accounting entry posted")
	return e, nil
}

func (s *Service) balanceLocked(ctx context.Context, memberID string) (float64, error) {
	last, err := s.store.LastEntry(ctx, memberID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return last.RunningBalance, nil
}

// Balance returns the member's current running balance.
func (s *Service) Balance(ctx context.Context, memberID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceLocked(ctx, memberID)
}

// Get returns an entry owned by memberID.
func (s *Service) Get(ctx context.Context, memberID, id string) (accounting.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return accounting.Entry{}, err
	}
	if err := service.Owned("entry", id, e.MemberID, memberID); err != nil {
		return accounting.Entry{}, err
	}
	return e, nil
}

// List returns a member's entries in posting order.
func (s *Service) List(ctx context.Context, memberID string, filter accounting.Filter) ([]accounting.Entry, error) {
	entries, err := s.store.ListEntries(ctx, memberID)
	if err != nil {
		return nil, err
	}
	result := make([]accounting.Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Match(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

// Summary totals a member's books between from and to (zero bounds are open).
// A reversal reduces the totals of the kind it reversed.
func (s *Service) Summary(ctx context.Context, memberID string, from, to time.Time) (accounting.Summary, error) {
	entries, err := s.List(ctx, memberID, accounting.Filter{From: from, To: to})
	if err != nil {
		return accounting.Summary{}, err
	}
	sum := accounting.Summary{
		MemberID:   memberID,
		From:       from,
		To:         to,
		ByCategory: make(map[accounting.Category]float64),
	}
	for _, e := range entries {
		reversal := e.ReversalOf != ""
		switch {
		case e.Kind == accounting.KindIncome && !reversal:
			sum.TotalIncome += e.Amount
		case e.Kind == accounting.KindExpense && !reversal:
			sum.TotalExpense += e.Amount
		case e.Kind == accounting.KindIncome:
			sum.TotalExpense -= e.Amount
		default:
			sum.TotalIncome -= e.Amount
		}
		sum.ByCategory[e.Category] = service.Round2(sum.ByCategory[e.Category] + e.Signed())
	}
	sum.TotalIncome = service.Round2(sum.TotalIncome)
	sum.TotalExpense = service.Round2(sum.TotalExpense)
	sum.Net = service.Round2(sum.TotalIncome - sum.TotalExpense)
	return sum, nil
}

// Delete reverses an entry by posting one of the opposite kind. The original
// stays in the books. Reversals cannot themselves be reversed and an entry is
// reversed at most once.
func (s *Service) Delete(ctx context.Context, memberID, id string) (accounting.Entry, error) {
	original, err := s.Get(ctx, memberID, id)
	if err != nil {
		return accounting.Entry{}, err
	}
	if original.ReversalOf != "" {
		return accounting.Entry{}, fmt.Errorf("entry %s is a reversal: %w", id, service.ErrLocked)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := RefReversal + ":" + original.ID
	entries, err := s.store.ListEntries(ctx, original.MemberID)
	if err != nil {
		return accounting.Entry{}, err
	}
	for _, e := range entries {
		if e.ReversalOf == original.ID {
			return accounting.Entry{}, fmt.Errorf("entry %s already reversed: %w", id, service.ErrLocked)
		}
	}

	reversal := accounting.Entry{
		MemberID:    original.MemberID,
		Kind:        accounting.KindIncome,
		Category:    original.Category,
		Amount:      original.Amount,
		Description: "reversal of " + original.ID,
		Reference:   ref,
		ReversalOf:  original.ID,
		OccurredOn:  time.Now().UTC(),
	}
	if original.Kind == accounting.KindIncome {
		reversal.Kind = accounting.KindExpense
	}
	return s.postLocked(ctx, reversal)
}

// ChargeLeases posts one lease expense per leased parcel of memberID that has
// not been charged for year yet. An empty memberID charges every member.
func (s *Service) ChargeLeases(ctx context.Context, memberID string, year int) ([]accounting.Entry, error) {
	if s.parcels == nil {
		return nil, fmt.Errorf("parcel store not configured")
	}
	if year < 1900 || year > 9999 {
		return nil, service.Invalid("year", "%d is out of range", year)
	}
	if memberID != "" {
		if err := service.RequireMember(ctx, s.members, memberID); err != nil {
			return nil, err
		}
	}
	parcels, err := s.parcels.ListParcels(ctx, memberID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	charged := make(map[string]map[string]bool)
	var posted []accounting.Entry
	for _, p := range parcels {
		if !p.Leased() || p.AnnualLeaseCost <= 0 {
			continue
		}
		refs, ok := charged[p.MemberID]
		if !ok {
			refs, err = s.referencesLocked(ctx, p.MemberID)
			if err != nil {
				return posted, err
			}
			charged[p.MemberID] = refs
		}
		ref := RefLease + ":" + p.ID + ":" + strconv.Itoa(year)
		if refs[ref] {
			continue
		}
		e, err := s.postLocked(ctx, accounting.Entry{
			MemberID:    p.MemberID,
			Kind:        accounting.KindExpense,
			Category:    accounting.CategoryLease,
			Amount:      service.Round2(p.AnnualLeaseCost),
			Description: fmt.Sprintf("lease %s %d", p.Code, year),
			Reference:   ref,
			OccurredOn:  time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			return posted, err
		}
		refs[ref] = true
		posted = append(posted, e)
	}
	return posted, nil
}

func (s *Service) referencesLocked(ctx context.Context, memberID string) (map[string]bool, error) {
	entries, err := s.store.ListEntries(ctx, memberID)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Reference != "" {
			refs[e.Reference] = true
		}
	}
	return refs, nil
}
