package accounting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/memory"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

func setup(t *testing.T) (*Service, *memory.Store, member.Member) {
	t.Helper()
	store := memory.New()
	m, err := store.CreateMember(context.Background(), member.Member{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return New(store, store, store, logger.Discard()), store, m
}

func TestService_RunningBalance(t *testing.T) {
	svc, _, m := setup(t)
	ctx := context.Background()

	e1, err := svc.RecordExpense(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategoryLabor, Amount: 120})
	if err != nil {
		t.Fatalf("expense: %v", err)
	}
	if e1.RunningBalance != -120 || e1.Kind != accounting.KindExpense {
		t.Fatalf("unexpected entry: %#v", e1)
	}
	e2, err := svc.RecordIncome(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategorySales, Amount: 500.456})
	if err != nil {
		t.Fatalf("income: %v", err)
	}
	if e2.Amount != 500.46 || e2.RunningBalance != 380.46 {
		t.Fatalf("unexpected running balance: %#v", e2)
	}

	bal, err := svc.Balance(ctx, m.ID)
	if err != nil || bal != 380.46 {
		t.Fatalf("balance = %v (%v)", bal, err)
	}

	if _, err := svc.RecordExpense(ctx, accounting.Entry{MemberID: m.ID, Amount: 0}); !service.IsValidation(err) {
		t.Fatalf("zero amount should fail, got %v", err)
	}
	if _, err := svc.RecordExpense(ctx, accounting.Entry{MemberID: m.ID, Category: "fuel", Amount: 1}); !service.IsValidation(err) {
		t.Fatalf("unknown category should fail, got %v", err)
	}
	if _, err := svc.RecordExpense(ctx, accounting.Entry{MemberID: "ghost", Amount: 1}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown member should fail, got %v", err)
	}
}

func TestService_DeletePostsReversal(t *testing.T) {
	svc, _, m := setup(t)
	ctx := context.Background()

	expense, _ := svc.RecordExpense(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategoryInputs, Amount: 80})
	if _, err := svc.RecordIncome(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategorySales, Amount: 200}); err != nil {
		t.Fatalf("income: %v", err)
	}

	reversal, err := svc.Delete(ctx, m.ID, expense.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if reversal.Kind != accounting.KindIncome || reversal.Reference != "reversal:"+expense.ID || reversal.RunningBalance != 200 {
		t.Fatalf("unexpected reversal: %#v", reversal)
	}
	if _, err := svc.Delete(ctx, m.ID, expense.ID); !errors.Is(err, service.ErrLocked) {
		t.Fatalf("second reversal should fail, got %v", err)
	}
	if _, err := svc.Delete(ctx, m.ID, reversal.ID); !errors.Is(err, service.ErrLocked) {
		t.Fatalf("reversals cannot be reversed, got %v", err)
	}

	entries, _ := svc.List(ctx, m.ID, accounting.Filter{})
	if len(entries) != 3 {
		t.Fatalf("books are append-only, expected 3 entries got %d", len(entries))
	}

	sum, err := svc.Summary(ctx, m.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalExpense != 0 || sum.TotalIncome != 200 || sum.Net != 200 {
		t.Fatalf("unexpected summary: %#v", sum)
	}
	if sum.ByCategory[accounting.CategoryInputs] != 0 || sum.ByCategory[accounting.CategorySales] != 200 {
		t.Fatalf("unexpected categories: %#v", sum.ByCategory)
	}
}

func TestService_TenantScoping(t *testing.T) {
	svc, store, m := setup(t)
	ctx := context.Background()
	other, _ := store.CreateMember(ctx, member.Member{Name: "Ben", Email: "ben@example.com"})

	e, _ := svc.RecordExpense(ctx, accounting.Entry{MemberID: m.ID, Amount: 10})
	if _, err := svc.Get(ctx, other.ID, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("cross-tenant get must expense missing, got %v", err)
	}
	if _, err := svc.Delete(ctx, other.ID, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("cross-tenant delete must expense missing, got %v", err)
	}
	otherEntry, _ := svc.RecordIncome(ctx, accounting.Entry{MemberID: other.ID, Amount: 5})
	if otherEntry.RunningBalance != 5 {
		t.Fatalf("running balances are per member, got %v", otherEntry.RunningBalance)
	}
}

func TestService_ListFilters(t *testing.T) {
	svc, _, m := setup(t)
	ctx := context.Background()
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	svc.RecordExpense(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategoryLabor, Amount: 10, OccurredOn: jan})
	svc.RecordExpense(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategoryInputs, Amount: 20, OccurredOn: mar})
	svc.RecordIncome(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategorySales, Amount: 30, OccurredOn: mar})

	labor, _ := svc.List(ctx, m.ID, accounting.Filter{Category: accounting.CategoryLabor})
	if len(labor) != 1 {
		t.Fatalf("expected 1 labor entry, got %d", len(labor))
	}
	expenses, _ := svc.List(ctx, m.ID, accounting.Filter{Kind: accounting.KindExpense})
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(expenses))
	}
	sum, _ := svc.Summary(ctx, m.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	if sum.TotalExpense != 20 || sum.TotalIncome != 30 || sum.Net != 10 {
		t.Fatalf("unexpected period summary: %#v", sum)
	}
}

func TestService_ChargeLeasesOncePerYear(t *testing.T) {
	svc, store, m := setup(t)
	ctx := context.Background()

	if _, err := store.CreateParcel(ctx, parcel.Parcel{MemberID: m.ID, Code: "L-1", AreaHectares: 2, Tenure: parcel.TenureLeased, AnnualLeaseCost: 300}); err != nil {
		t.Fatalf("create parcel: %v", err)
	}
	if _, err := store.CreateParcel(ctx, parcel.Parcel{MemberID: m.ID, Code: "O-1", AreaHectares: 2, Tenure: parcel.TenureOwned}); err != nil {
		t.Fatalf("create parcel: %v", err)
	}

	posted, err := svc.ChargeLeases(ctx, m.ID, 2024)
	if err != nil {
		t.Fatalf("charge leases: %v", err)
	}
	if len(posted) != 1 || posted[0].Category != accounting.CategoryLease || posted[0].Amount != 300 {
		t.Fatalf("unexpected lease charges: %#v", posted)
	}

	again, err := svc.ChargeLeases(ctx, "", 2024)
	if err != nil {
		t.Fatalf("charge leases again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("leases must be charged once per year, got %d", len(again))
	}

	next, _ := svc.ChargeLeases(ctx, m.ID, 2025)
	if len(next) != 1 {
		t.Fatalf("expected a charge for the next year, got %d", len(next))
	}
}

func TestService_ReversalLinkIsNotTakenFromReference(t *testing.T) {
	svc, _, m := setup(t)
	ctx := context.Background()

	income, err := svc.RecordIncome(ctx, accounting.Entry{MemberID: m.ID, Category: accounting.CategorySales, Amount: 100})
	if err != nil {
		t.Fatalf("income: %v", err)
	}
	expense, err := svc.RecordExpense(ctx, accounting.Entry{
		MemberID:   m.ID,
		Amount:     30,
		Reference:  "reversal:" + income.ID,
		ReversalOf: income.ID,
	})
	if err != nil {
		t.Fatalf("expense: %v", err)
	}
	if expense.ReversalOf != "" {
		t.Fatalf("posted entries must not carry a caller reversal link: %#v", expense)
	}

	sum, err := svc.Summary(ctx, m.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalIncome != 100 || sum.TotalExpense != 30 || sum.Net != 70 {
		t.Fatalf("unexpected summary: %#v", sum)
	}

	reversal, err := svc.Delete(ctx, m.ID, income.ID)
	if err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if reversal.ReversalOf != income.ID {
		t.Fatalf("reversal must link the original: %#v", reversal)
	}
	if _, err := svc.Delete(ctx, m.ID, reversal.ID); !errors.Is(err, service.ErrLocked) {
		t.Fatalf("reversing a reversal should be locked, got %v", err)
	}
}

func TestService_RecordManualRejectsReservedReferences(t *testing.T) {
	svc, store, m := setup(t)
	ctx := context.Background()

	p, err := store.CreateParcel(ctx, parcel.Parcel{MemberID: m.ID, Code: "L-1", AreaHectares: 1, Tenure: parcel.TenureLeased, AnnualLeaseCost: 50})
	if err != nil {
		t.Fatalf("create parcel: %v", err)
	}
	for _, ref := range []string{"reversal:1", "lease:" + p.ID + ":2024", "Activity:9", "admission:3", "sale:x", "processing:y"} {
		if _, err := svc.RecordManual(ctx, accounting.Entry{MemberID: m.ID, Amount: 1, Reference: ref}); !service.IsValidation(err) {
			t.Fatalf("reference %q should be rejected, got %v", ref, err)
		}
	}
	if _, err := svc.RecordManual(ctx, accounting.Entry{MemberID: m.ID, Kind: "transfer", Amount: 1}); !service.IsValidation(err) {
		t.Fatalf("unknown kind should be rejected, got %v", err)
	}

	e, err := svc.RecordManual(ctx, accounting.Entry{MemberID: m.ID, Kind: accounting.KindIncome, Amount: 5, Reference: "invoice:17"})
	if err != nil || e.Kind != accounting.KindIncome {
		t.Fatalf("manual income: %#v (%v)", e, err)
	}

	posted, err := svc.ChargeLeases(ctx, m.ID, 2024)
	if err != nil || len(posted) != 1 {
		t.Fatalf("lease must still be charged: %d (%v)", len(posted), err)
	}
}

func ExampleService_Summary() {
	store := memory.New()
	m, _ := store.CreateMember(context.Background(), member.Member{Name: "Ana", Email: "ana@example.com"})
	svc := New(store, store, store, logger.Discard())

	svc.RecordExpense(context.Background(), accounting.Entry{MemberID: m.ID, Category: accounting.CategoryLabor, Amount: 40})
	svc.RecordIncome(context.Background(), accounting.Entry{MemberID: m.ID, Category: accounting.CategorySales, Amount: 100})

	sum, _ := svc.Summary(context.Background(), m.ID, time.Time{}, time.Time{})
	fmt.Printf("income:%.2f expense:%.2f net:%.2f\n", sum.TotalIncome, sum.TotalExpense, sum.Net)
	// Output:
	// income:100.00 expense:40.00 net:60.00
}
