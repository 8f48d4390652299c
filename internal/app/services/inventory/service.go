package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/metrics"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/google/uuid"
)

// ErrInsufficientStock is returned when an issue exceeds the product balance.
var ErrInsufficientStock = errors.New("insufficient stock")

// Ledger receives the accounting side of stock movements.
type Ledger interface {
	RecordExpense(ctx context.Context, e accounting.Entry) (accounting.Entry, error)
	RecordIncome(ctx context.Context, e accounting.Entry) (accounting.Entry, error)
}

// Movement describes stock entering or leaving a member's store.
type Movement struct {
	MemberID   string
	Product    string
	Quantity   float64
	UnitCost   float64
	Reference  string
	OccurredOn time.Time
}

// Service keeps the stock ledger and the running balance of every product.
// Balances are valued at weighted average cost.
type Service struct {
	members storage.MemberStore
	store   storage.InventoryStore
	ledger  Ledger
	log     *logger.Logger

	// mu serialises balance read-modify-write.
	mu sync.Mutex
}

// New constructs an inventory service. ledger may be nil, in which case
// adjustments and sales post no accounting entries.
func New(members storage.MemberStore, store storage.InventoryStore, ledger Ledger, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("inventory")
	}
	return &Service{members: members, store: store, ledger: ledger, log: log}
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "inventory",
		Domain:       "inventory",
		Layer:        service.LayerLedger,
		Capabilities: []string{"receive", "issue", "adjust", "sell", "reconcile"},
	}
}

// Receive posts an inbound line at the given unit cost.
func (s *Service) Receive(ctx context.Context, mv Movement) (inventory.Item, error) {
	if err := s.validate(ctx, &mv); err != nil {
		return inventory.Item{}, err
	}
	if err := service.NonNegative("unit_cost", mv.UnitCost); err != nil {
		return inventory.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receiveLocked(ctx, mv)
}

// Issue posts an outbound line valued at the current average cost. The
// movement's UnitCost is ignored.
func (s *Service) Issue(ctx context.Context, mv Movement) (inventory.Item, error) {
	if err := s.validate(ctx, &mv); err != nil {
		return inventory.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(ctx, mv)
}

func (s *Service) validate(ctx context.Context, mv *Movement) error {
	mv.MemberID = strings.TrimSpace(mv.MemberID)
	mv.Product = normalizeProduct(mv.Product)
	mv.Reference = strings.TrimSpace(mv.Reference)
	if mv.Product == "" {
		return service.Required("product")
	}
	if err := service.Positive("quantity", mv.Quantity); err != nil {
		return err
	}
	if mv.OccurredOn.IsZero() {
		mv.OccurredOn = time.Now().UTC()
	}
	return service.RequireMember(ctx, s.members, mv.MemberID)
}

func normalizeProduct(product string) string {
	return strings.ToLower(strings.TrimSpace(product))
}

func (s *Service) loadBalance(ctx context.Context, memberID, product string) (inventory.Balance, error) {
	bal, err := s.store.GetInventoryBalance(ctx, memberID, product)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return inventory.Balance{MemberID: memberID, Product: product}, nil
		}
		return inventory.Balance{}, err
	}
	return bal, nil
}

func (s *Service) receiveLocked(ctx context.Context, mv Movement) (inventory.Item, error) {
	bal, err := s.loadBalance(ctx, mv.MemberID, mv.Product)
	if err != nil {
		return inventory.Item{}, err
	}
	value := service.Round2(mv.Quantity * mv.UnitCost)
	bal.Quantity += mv.Quantity
	bal.Value = service.Round2(bal.Value + value)
	return s.postLocked(ctx, bal, inventory.Item{
		MemberID:   mv.MemberID,
		Product:    mv.Product,
		Direction:  inventory.DirectionIn,
		Quantity:   mv.Quantity,
		UnitCost:   mv.UnitCost,
		Value:      value,
		Reference:  mv.Reference,
		OccurredOn: mv.OccurredOn,
	})
}

func (s *Service) issueLocked(ctx context.Context, mv Movement) (inventory.Item, error) {
	bal, err := s.loadBalance(ctx, mv.MemberID, mv.Product)
	if err != nil {
		return inventory.Item{}, err
	}
	if mv.Quantity > bal.Quantity+service.Epsilon {
		return inventory.Item{}, fmt.Errorf("%s: requested %.3f, available %.3f: %w", mv.Product, mv.Quantity, bal.Quantity, ErrInsufficientStock)
	}

	var value float64
	if mv.Quantity >= bal.Quantity-service.Epsilon {
		value = bal.Value
		bal.Quantity = 0
		bal.Value = 0
	} else {
		value = service.Round2(mv.Quantity * averageCost(bal))
		bal.Quantity -= mv.Quantity
		bal.Value = service.Round2(bal.Value - value)
	}
	return s.postLocked(ctx, bal, inventory.Item{
		MemberID:   mv.MemberID,
		Product:    mv.Product,
		Direction:  inventory.DirectionOut,
		Quantity:   mv.Quantity,
		UnitCost:   value / mv.Quantity,
		Value:      value,
		Reference:  mv.Reference,
		OccurredOn: mv.OccurredOn,
	})
}

// postLocked writes the ledger line first and the balance second. A failure
// between the two leaves drift that Reconcile repairs.
func (s *Service) postLocked(ctx context.Context, bal inventory.Balance, item inventory.Item) (inventory.Item, error) {
	if math.Abs(bal.Quantity) < service.Epsilon {
		bal.Quantity = 0
	}
	bal.AverageCost = averageCost(bal)
	bal.LastMovementAt = item.OccurredOn
	item.BalanceQuantity = bal.Quantity
	item.BalanceValue = bal.Value

	item, err := s.store.CreateInventoryItem(ctx, item)
	if err != nil {
		return inventory.Item{}, err
	}
	if _, err := s.store.PutInventoryBalance(ctx, bal); err != nil {
		s.log.WithError(err).
			WithField("member_id", bal.MemberID).
			WithField("product", bal.Product).
			Warn("balance update failed after ledger post")
		return item, err
	}
	metrics.RecordInventoryMovement(string(item.Direction), item.Reference)
	s.log.WithField("item_id", item.ID).
		WithField("member_id", item.MemberID).
		WithField("product", item.Product).
		WithField("direction", item.Direction).
		WithField("quantity", item.Quantity).
		WithField("balance", item.BalanceQuantity).
		Info("inventory movement posted")
	return item, nil
}

func averageCost(bal inventory.Balance) float64 {
	if bal.Quantity <= service.Epsilon {
		return 0
	}
	return bal.Value / bal.Quantity
}

// Adjust corrects the stock of a product by delta. Positive adjustments enter
// at unitCost and, when that cost is non-zero, post an inputs expense.
// Negative adjustments leave at average cost and post an inventory loss.
func (s *Service) Adjust(ctx context.Context, memberID, product string, delta, unitCost float64, reason string) (inventory.Item, error) {
	if delta == 0 || math.IsNaN(delta) {
		return inventory.Item{}, service.Invalid("quantity", "must not be zero")
	}
	if err := service.NonNegative("unit_cost", unitCost); err != nil {
		return inventory.Item{}, err
	}
	mv := Movement{
		MemberID:  memberID,
		Product:   product,
		Quantity:  math.Abs(delta),
		UnitCost:  unitCost,
		Reference: inventory.RefAdjustment,
	}
	if err := s.validate(ctx, &mv); err != nil {
		return inventory.Item{}, err
	}
	reason = strings.TrimSpace(reason)

	s.mu.Lock()
	var (
		item inventory.Item
		err  error
	)
	if delta > 0 {
		item, err = s.receiveLocked(ctx, mv)
	} else {
		item, err = s.issueLocked(ctx, mv)
	}
	s.mu.Unlock()
	if err != nil {
		return inventory.Item{}, err
	}

	if s.ledger != nil && item.Value > 0 {
		category := accounting.CategoryInventoryLoss
		if delta > 0 {
			category = accounting.CategoryInputs
		}
		description := fmt.Sprintf("stock adjustment %s %+.3f", item.Product, delta)
		if reason != "" {
			description += ": " + reason
		}
		if _, err := s.ledger.RecordExpense(ctx, accounting.Entry{
			MemberID:    item.MemberID,
			Category:    category,
			Amount:      item.Value,
			Description: description,
			Reference:   inventory.RefAdjustment + ":" + item.ID,
			OccurredOn:  item.OccurredOn,
		}); err != nil {
			s.log.WithError(err).
				WithField("item_id", item.ID).
				Warn("adjustment expense not recorded")
			return item, fmt.Errorf("record adjustment expense: %w", err)
		}
	}
	return item, nil
}

// Sell issues stock and records the proceeds as sales income.
func (s *Service) Sell(ctx context.Context, sale inventory.Sale) (inventory.Item, accounting.Entry, error) {
	if err := service.Positive("unit_price", sale.UnitPrice); err != nil {
		return inventory.Item{}, accounting.Entry{}, err
	}
	ref := inventory.RefSale + ":" + uuid.NewString()
	item, err := s.Issue(ctx, Movement{
		MemberID:   sale.MemberID,
		Product:    sale.Product,
		Quantity:   sale.Quantity,
		Reference:  ref,
		OccurredOn: sale.SoldOn,
	})
	if err != nil {
		return inventory.Item{}, accounting.Entry{}, err
	}
	if s.ledger == nil {
		return item, accounting.Entry{}, nil
	}

	description := fmt.Sprintf("sale of %.3f %s", item.Quantity, item.Product)
	if buyer := strings.TrimSpace(sale.Buyer); buyer != "" {
		description += " to " + buyer
	}
	entry, err := s.ledger.RecordIncome(ctx, accounting.Entry{
		MemberID:    item.MemberID,
		Category:    accounting.CategorySales,
		Amount:      service.Round2(item.Quantity * sale.UnitPrice),
		Description: description,
		Reference:   ref,
		OccurredOn:  item.OccurredOn,
	})
	if err != nil {
		s.log.WithError(err).
			WithField("item_id", item.ID).
			Warn("sale income not recorded")
		return item, accounting.Entry{}, fmt.Errorf("record sale income: %w", err)
	}
	return item, entry, nil
}

// Reconcile recomputes every balance of memberID from its ledger and rewrites
// the ones that drifted. An empty memberID reconciles every member. It returns
// the repaired balances.
func (s *Service) Reconcile(ctx context.Context, memberID string) ([]inventory.Balance, error) {
	memberIDs := []string{memberID}
	if memberID == "" {
		members, err := s.members.ListMembers(ctx)
		if err != nil {
			return nil, err
		}
		memberIDs = memberIDs[:0]
		for _, m := range members {
			memberIDs = append(memberIDs, m.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var repaired []inventory.Balance
	for _, id := range memberIDs {
		fixed, err := s.reconcileLocked(ctx, id)
		if err != nil {
			return repaired, fmt.Errorf("reconcile member %s: %w", id, err)
		}
		repaired = append(repaired, fixed...)
	}
	return repaired, nil
}

func (s *Service) reconcileLocked(ctx context.Context, memberID string) ([]inventory.Balance, error) {
	items, err := s.store.ListInventoryItems(ctx, memberID, "")
	if err != nil {
		return nil, err
	}
	expected := Replay(memberID, items)

	stored, err := s.store.ListInventoryBalances(ctx, memberID)
	if err != nil {
		return nil, err
	}
	current := make(map[string]inventory.Balance, len(stored))
	for _, bal := range stored {
		current[bal.Product] = bal
	}

	var repaired []inventory.Balance
	for product, want := range expected {
		have, ok := current[product]
		if ok && math.Abs(have.Quantity-want.Quantity) < 1e-6 && math.Abs(have.Value-want.Value) < 0.005 {
			continue
		}
		saved, err := s.store.PutInventoryBalance(ctx, want)
		if err != nil {
			return repaired, err
		}
		s.log.WithField("member_id", memberID).
			WithField("product", product).
			WithField("stored_quantity", have.Quantity).
			WithField("ledger_quantity", want.Quantity).
			Warn("inventory balance drift repaired")
		repaired = append(repaired, saved)
	}
	for product, have := range current {
		if _, ok := expected[product]; ok {
			continue
		}
		if math.Abs(have.Quantity) < 1e-6 && math.Abs(have.Value) < 0.005 {
			continue
		}
		saved, err := s.store.PutInventoryBalance(ctx, inventory.Balance{
			MemberID:       memberID,
			Product:        product,
			LastMovementAt: have.LastMovementAt,
		})
		if err != nil {
			return repaired, err
		}
		s.log.WithField("member_id", memberID).
			WithField("product", product).
			WithField("stored_quantity", have.Quantity).
			Warn("inventory balance without ledger lines zeroed")
		repaired = append(repaired, saved)
	}
	return repaired, nil
}

// Replay folds ledger lines (in posting order) into balances per product.
func Replay(memberID string, items []inventory.Item) map[string]inventory.Balance {
	balances := make(map[string]inventory.Balance)
	for _, item := range items {
		bal, ok := balances[item.Product]
		if !ok {
			bal = inventory.Balance{MemberID: memberID, Product: item.Product}
		}
		if item.Direction == inventory.DirectionIn {
			bal.Quantity += item.Quantity
			bal.Value = service.Round2(bal.Value + item.Value)
		} else {
			bal.Quantity -= item.Quantity
			bal.Value = service.Round2(bal.Value - item.Value)
		}
		if math.Abs(bal.Quantity) < service.Epsilon {
			bal.Quantity = 0
			bal.Value = 0
		}
		bal.AverageCost = averageCost(bal)
		bal.LastMovementAt = item.OccurredOn
		balances[item.Product] = bal
	}
	return balances
}

// GetItem returns a ledger line owned by memberID.
func (s *Service) GetItem(ctx context.Context, memberID, id string) (inventory.Item, error) {
	item, err := s.store.GetInventoryItem(ctx, id)
	if err != nil {
		return inventory.Item{}, err
	}
	if err := service.Owned("inventory item", id, item.MemberID, memberID); err != nil {
		return inventory.Item{}, err
	}
	return item, nil
}

// ListItems returns a member's ledger, optionally for one product.
func (s *Service) ListItems(ctx context.Context, memberID, product string) ([]inventory.Item, error) {
	return s.store.ListInventoryItems(ctx, memberID, normalizeProduct(product))
}

// ListBalances returns the stock position of every product of a member.
func (s *Service) ListBalances(ctx context.Context, memberID string) ([]inventory.Balance, error) {
	return s.store.ListInventoryBalances(ctx, memberID)
}

// GetBalance returns the stock position of one product. Products that never
// moved report an empty balance.
func (s *Service) GetBalance(ctx context.Context, memberID, product string) (inventory.Balance, error) {
	return s.loadBalance(ctx, memberID, normalizeProduct(product))
}
