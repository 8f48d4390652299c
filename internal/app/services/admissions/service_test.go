package admissions

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	inventorysvc "github.com/R3E-Network/farm_backoffice/internal/app/services/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/memory"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

func newServices(t *testing.T) (*Service, *inventorysvc.Service, *memory.Store, member.Member) {
	t.Helper()
	store := memory.New()
	m, err := store.CreateMember(context.Background(), member.Member{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	stock := inventorysvc.New(store, store, nil, logger.Discard())
	svc := New(store, store, stock, logger.Discard())
	svc.AttachDependencies(store, store, store)
	return svc, stock, store, m
}

func TestService_AdmitPostsInventory(t *testing.T) {
	svc, stock, _, m := newServices(t)
	ctx := context.Background()

	a, err := svc.Admit(ctx, admission.Admission{MemberID: m.ID, Source: admission.SourcePurchase, Supplier: "Coop", Product: " Coffee ", Quantity: 40, UnitCost: 1.5})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if a.InventoryItemID == "" || a.Product != "coffee" || a.Unit != "kg" {
		t.Fatalf("unexpected admission: %#v", a)
	}

	item, err := stock.GetItem(ctx, m.ID, a.InventoryItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Reference != "admission:"+a.ID || item.Value != 60 {
		t.Fatalf("unexpected item: %#v", item)
	}

	stored, err := svc.Get(ctx, m.ID, a.ID)
	if err != nil || stored.InventoryItemID != item.ID {
		t.Fatalf("link not persisted: %#v (%v)", stored, err)
	}
}

func TestService_AdmitValidation(t *testing.T) {
	svc, _, store, m := newServices(t)
	ctx := context.Background()
	other, _ := store.CreateMember(ctx, member.Member{Name: "Ben", Email: "ben@example.com"})
	foreignParcel, _ := store.CreateParcel(ctx, parcel.Parcel{MemberID: other.ID, Code: "X-1", AreaHectares: 1})

	cases := []admission.Admission{
		{MemberID: m.ID, Source: "gift", Product: "coffee", Quantity: 1},
		{MemberID: m.ID, Source: admission.SourceHarvest, Quantity: 1},
		{MemberID: m.ID, Source: admission.SourceHarvest, Product: "coffee"},
		{MemberID: m.ID, Source: admission.SourcePurchase, Product: "coffee", Quantity: 1},
		{MemberID: m.ID, Source: admission.SourceHarvest, Product: "coffee", Quantity: 1, UnitCost: -1},
	}
	for _, a := range cases {
		if _, err := svc.Admit(ctx, a); !service.IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", a, err)
		}
	}
	if _, err := svc.Admit(ctx, admission.Admission{MemberID: m.ID, Source: admission.SourceHarvest, Product: "coffee", Quantity: 1, ParcelID: foreignParcel.ID}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign parcel must be rejected, got %v", err)
	}
}

func TestService_DeleteReversesStock(t *testing.T) {
	svc, stock, store, m := newServices(t)
	ctx := context.Background()

	act, _ := store.CreateActivity(ctx, activity.Activity{MemberID: m.ID, Type: activity.TypeHarvesting})
	a, err := svc.Admit(ctx, admission.Admission{MemberID: m.ID, Source: admission.SourceHarvest, ActivityID: act.ID, Product: "coffee", Quantity: 10, UnitCost: 2})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	act.AdmissionID = a.ID
	store.UpdateActivity(ctx, act)

	if _, err := stock.Issue(ctx, inventorysvc.Movement{MemberID: m.ID, Product: "coffee", Quantity: 6}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Delete(ctx, m.ID, a.ID); !errors.Is(err, inventorysvc.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	stock.Receive(ctx, inventorysvc.Movement{MemberID: m.ID, Product: "coffee", Quantity: 6, UnitCost: 2})
	if err := svc.Delete(ctx, m.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	bal, _ := stock.GetBalance(ctx, m.ID, "coffee")
	if bal.Quantity != 0 {
		t.Fatalf("expected empty stock after reversal, got %v", bal.Quantity)
	}
	items, _ := stock.ListItems(ctx, m.ID, "coffee")
	if got := items[len(items)-1].Reference; got != "reversal:admission:"+a.ID {
		t.Fatalf("unexpected reversal reference %q", got)
	}
	released, _ := store.GetActivity(ctx, act.ID)
	if released.AdmissionID != "" {
		t.Fatalf("activity should be released after admission delete")
	}
	if _, err := svc.Get(ctx, m.ID, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected admission to be gone, got %v", err)
	}
}

func TestService_ListFilters(t *testing.T) {
	svc, _, _, m := newServices(t)
	ctx := context.Background()

	svc.Admit(ctx, admission.Admission{MemberID: m.ID, Source: admission.SourceHarvest, Product: "coffee", Quantity: 1})
	svc.Admit(ctx, admission.Admission{MemberID: m.ID, Source: admission.SourceTransfer, Product: "coffee", Quantity: 1})
	svc.Admit(ctx, admission.Admission{MemberID: m.ID, Source: admission.SourceHarvest, Product: "maize", Quantity: 1})

	coffee, _ := svc.List(ctx, m.ID, admission.Filter{Product: "Coffee"})
	if len(coffee) != 2 {
		t.Fatalf("expected 2 coffee admissions, got %d", len(coffee))
	}
	harvests, _ := svc.List(ctx, m.ID, admission.Filter{Source: admission.SourceHarvest})
	if len(harvests) != 2 {
		t.Fatalf("expected 2 harvest admissions, got %d", len(harvests))
	}
}
