package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	accountingsvc "github.com/R3E-Network/farm_backoffice/internal/app/services/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/memory"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

type fixture struct {
	store *memory.Store
	books *accountingsvc.Service
	svc   *Service
	m     member.Member
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	m, err := store.CreateMember(context.Background(), member.Member{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	books := accountingsvc.New(store, store, store, logger.Discard())
	return fixture{store: store, books: books, svc: New(store, store, books, logger.Discard()), m: m}
}

func TestService_WeightedAverageCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Receive(ctx, Movement{MemberID: f.m.ID, Product: "Coffee", Quantity: 100, UnitCost: 2, Reference: "admission:1"}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	in2, err := f.svc.Receive(ctx, Movement{MemberID: f.m.ID, Product: "coffee", Quantity: 100, UnitCost: 4, Reference: "admission:2"})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if in2.BalanceQuantity != 200 || in2.BalanceValue != 600 {
		t.Fatalf("unexpected running balance: %#v", in2)
	}

	out, err := f.svc.Issue(ctx, Movement{MemberID: f.m.ID, Product: "coffee", Quantity: 50, Reference: "processing:1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if out.Value != 150 || out.UnitCost != 3 || out.BalanceQuantity != 150 || out.BalanceValue != 450 {
		t.Fatalf("issue must leave at average cost: %#v", out)
	}

	bal, err := f.svc.GetBalance(ctx, f.m.ID, "COFFEE")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Quantity != 150 || bal.Value != 450 || bal.AverageCost != 3 {
		t.Fatalf("unexpected balance: %#v", bal)
	}

	if _, err := f.svc.Issue(ctx, Movement{MemberID: f.m.ID, Product: "coffee", Quantity: 151}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	last, err := f.svc.Issue(ctx, Movement{MemberID: f.m.ID, Product: "coffee", Quantity: 150})
	if err != nil {
		t.Fatalf("issue rest: %v", err)
	}
	if last.BalanceQuantity != 0 || last.BalanceValue != 0 || last.Value != 450 {
		t.Fatalf("emptying the stock must zero the value: %#v", last)
	}

	items, _ := f.svc.ListItems(ctx, f.m.ID, "coffee")
	if len(items) != 4 {
		t.Fatalf("expected 4 ledger lines, got %d", len(items))
	}
}

func TestService_AdjustPostsExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gain, err := f.svc.Adjust(ctx, f.m.ID, "fertilizer", 10, 5, "found bags")
	if err != nil {
		t.Fatalf("positive adjust: %v", err)
	}
	if gain.Direction != inventory.DirectionIn || gain.Reference != inventory.RefAdjustment {
		t.Fatalf("unexpected adjustment line: %#v", gain)
	}
	loss, err := f.svc.Adjust(ctx, f.m.ID, "fertilizer", -4, 0, "water damage")
	if err != nil {
		t.Fatalf("negative adjust: %v", err)
	}
	if loss.Direction != inventory.DirectionOut || loss.Value != 20 {
		t.Fatalf("unexpected loss line: %#v", loss)
	}
	if _, err := f.svc.Adjust(ctx, f.m.ID, "fertilizer", 0, 0, ""); !service.IsValidation(err) {
		t.Fatalf("zero delta must fail, got %v", err)
	}

	entries, _ := f.books.List(ctx, f.m.ID, accounting.Filter{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Category != accounting.CategoryInputs || entries[0].Amount != 50 {
		t.Fatalf("unexpected gain entry: %#v", entries[0])
	}
	if entries[1].Category != accounting.CategoryInventoryLoss || entries[1].Amount != 20 || !strings.Contains(entries[1].Description, "water damage") {
		t.Fatalf("unexpected loss entry: %#v", entries[1])
	}
}

func TestService_SellRecordsIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Receive(ctx, Movement{MemberID: f.m.ID, Product: "maize", Quantity: 30, UnitCost: 1})
	item, entry, err := f.svc.Sell(ctx, inventory.Sale{MemberID: f.m.ID, Product: "maize", Quantity: 10, UnitPrice: 2.5, Buyer: "Mill Co"})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if item.Direction != inventory.DirectionOut || !strings.HasPrefix(item.Reference, "sale:") {
		t.Fatalf("unexpected sale line: %#v", item)
	}
	if entry.Kind != accounting.KindIncome || entry.Amount != 25 || entry.Reference != item.Reference {
		t.Fatalf("unexpected income: %#v", entry)
	}
	if _, _, err := f.svc.Sell(ctx, inventory.Sale{MemberID: f.m.ID, Product: "maize", Quantity: 100, UnitPrice: 1}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("overselling must fail, got %v", err)
	}
	entries, _ := f.books.List(ctx, f.m.ID, accounting.Filter{})
	if len(entries) != 1 {
		t.Fatalf("failed sale must not record income, got %d entries", len(entries))
	}
}

func TestService_ReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Receive(ctx, Movement{MemberID: f.m.ID, Product: "beans", Quantity: 20, UnitCost: 3})
	f.svc.Issue(ctx, Movement{MemberID: f.m.ID, Product: "beans", Quantity: 5})

	repaired, err := f.svc.Reconcile(ctx, f.m.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(repaired) != 0 {
		t.Fatalf("consistent balances need no repair, got %+v", repaired)
	}

	if _, err := f.store.PutInventoryBalance(ctx, inventory.Balance{MemberID: f.m.ID, Product: "beans", Quantity: 999}); err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}
	repaired, err = f.svc.Reconcile(ctx, "")
	if err != nil {
		t.Fatalf("reconcile all: %v", err)
	}
	if len(repaired) != 1 || repaired[0].Quantity != 15 || repaired[0].Value != 45 {
		t.Fatalf("unexpected repair: %+v", repaired)
	}
}

func TestService_ReconcileZeroesOrphanBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.store.PutInventoryBalance(ctx, inventory.Balance{MemberID: f.m.ID, Product: "cocoa", Quantity: 12, Value: 60}); err != nil {
		t.Fatalf("put balance: %v", err)
	}
	repaired, err := f.svc.Reconcile(ctx, f.m.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(repaired) != 1 || repaired[0].Product != "cocoa" || repaired[0].Quantity != 0 || repaired[0].Value != 0 {
		t.Fatalf("orphan balance not zeroed: %+v", repaired)
	}
	bal, err := f.store.GetInventoryBalance(ctx, f.m.ID, "cocoa")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Quantity != 0 || bal.Value != 0 {
		t.Fatalf("stored balance still drifted: %+v", bal)
	}

	repaired, err = f.svc.Reconcile(ctx, f.m.ID)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if len(repaired) != 0 {
		t.Fatalf("zeroed balance repaired twice: %+v", repaired)
	}
}

func TestService_TenantScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, _ := f.store.CreateMember(ctx, member.Member{Name: "Ben", Email: "ben@example.com"})

	item, _ := f.svc.Receive(ctx, Movement{MemberID: f.m.ID, Product: "coffee", Quantity: 1, UnitCost: 1})
	if _, err := f.svc.Issue(ctx, Movement{MemberID: other.ID, Product: "coffee", Quantity: 1}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("stock is per member, got %v", err)
	}
	if _, err := f.svc.GetItem(ctx, other.ID, item.ID); err == nil {
		t.Fatalf("cross-tenant item must look missing")
	}
}

func ExampleService_Issue() {
	store := memory.New()
	m, _ := store.CreateMember(context.Background(), member.Member{Name: "Ana", Email: "ana@example.com"})
	svc := New(store, store, nil, logger.Discard())

	svc.Receive(context.Background(), Movement{MemberID: m.ID, Product: "coffee", Quantity: 10, UnitCost: 2})
	svc.Receive(context.Background(), Movement{MemberID: m.ID, Product: "coffee", Quantity: 10, UnitCost: 4})
	out, _ := svc.Issue(context.Background(), Movement{MemberID: m.ID, Product: "coffee", Quantity: 5})
	fmt.Printf("issued value:%.2f remaining:%.0f@%.2f\n", out.Value, out.BalanceQuantity, out.BalanceValue)
	// Output:
	// issued value:15.00 remaining:15@45.00
}
