package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestGetZoneMapsNoRowsToNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM zones WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetZone(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateMemberMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO members`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "members_email_key"})

	_, err := store.CreateMember(context.Background(), member.Member{Name: "Ana", Email: "ANA@example.com"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListZonesScansRows(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "member_id", "name", "description", "area_hectares", "created_at", "updated_at"}).
		AddRow("z1", "m1", "north", "", 12.5, now, now).
		AddRow("z2", "m1", "south", "river side", 4.0, now, now)
	mock.ExpectQuery(`SELECT (.+) FROM zones`).WithArgs("m1").WillReturnRows(rows)

	zones, err := store.ListZones(context.Background(), "m1")
	if err != nil {
		t.Fatalf("list zones: %v", err)
	}
	if len(zones) != 2 || zones[1].Description != "river side" || zones[0].AreaHectares != 12.5 {
		t.Fatalf("unexpected zones: %+v", zones)
	}
}

func TestDeleteParcelWithoutRowsIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM parcels WHERE id = \$1`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteParcel(context.Background(), "p1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutInventoryBalanceUpserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO inventory_balances (.+) ON CONFLICT \(member_id, product\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	bal, err := store.PutInventoryBalance(context.Background(), inventory.Balance{MemberID: "m1", Product: "coffee", Quantity: 3})
	if err != nil {
		t.Fatalf("put balance: %v", err)
	}
	if bal.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be stamped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()

	m, err := store.CreateMember(ctx, member.Member{Name: "Integration", Email: "integration-" + time.Now().Format("150405.000") + "@example.com", Role: member.RoleMember, Active: true})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	defer store.DeleteMember(ctx, m.ID)

	z, err := store.CreateZone(ctx, zone.Zone{MemberID: m.ID, Name: "north"})
	if err != nil {
		t.Fatalf("create zone: %v", err)
	}
	if _, err := store.GetZone(ctx, z.ID); err != nil {
		t.Fatalf("get zone: %v", err)
	}

	first, err := store.CreateEntry(ctx, accounting.Entry{MemberID: m.ID, Kind: accounting.KindExpense, Category: accounting.CategoryLabor, Amount: 10, RunningBalance: -10, OccurredOn: time.Now().UTC()})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	last, err := store.LastEntry(ctx, m.ID)
	if err != nil {
		t.Fatalf("last entry: %v", err)
	}
	if last.ID != first.ID {
		t.Fatalf("expected %s got %s", first.ID, last.ID)
	}
}
