package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.MemberStore = (*Store)(nil)
var _ storage.ZoneStore = (*Store)(nil)
var _ storage.ParcelStore = (*Store)(nil)
var _ storage.HarvesterStore = (*Store)(nil)
var _ storage.ActivityStore = (*Store)(nil)
var _ storage.AdmissionStore = (*Store)(nil)
var _ storage.ProcessingStore = (*Store)(nil)
var _ storage.InventoryStore = (*Store)(nil)
var _ storage.AccountingStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

// mapErr translates driver errors into storage sentinels.
func mapErr(kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s %s: %s: %w", kind, id, pqErr.Constraint, storage.ErrConflict)
	}
	return err
}

// requireRow turns a zero-row update or delete into ErrNotFound.
func requireRow(kind, id string, result sql.Result) error {
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
