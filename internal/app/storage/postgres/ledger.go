package postgres

import (
	"context"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/google/uuid"
)

// Ledger tables carry a BIGSERIAL seq column that fixes posting order.

// --- InventoryStore ---------------------------------------------------------

const itemColumns = `id, member_id, product, direction, quantity, unit_cost, value, reference, occurred_on,
	balance_quantity, balance_value, created_at`

func (s *Store) CreateInventoryItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO inventory_items (`+itemColumns+`)
		VALUES (:id, :member_id, :product, :direction, :quantity, :unit_cost, :value, :reference, :occurred_on,
			:balance_quantity, :balance_value, :created_at)
	`, item)
	if err != nil {
		return inventory.Item{}, mapErr("inventory item", item.ID, err)
	}
	return item, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (inventory.Item, error) {
	var item inventory.Item
	if err := s.db.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id); err != nil {
		return inventory.Item{}, mapErr("inventory item", id, err)
	}
	return item, nil
}

func (s *Store) ListInventoryItems(ctx context.Context, memberID, product string) ([]inventory.Item, error) {
	var result []inventory.Item
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+itemColumns+` FROM inventory_items
		WHERE member_id = $1 AND ($2 = '' OR product = $2)
		ORDER BY seq
	`, memberID, product)
	return result, err
}

const balanceColumns = `member_id, product, quantity, value, average_cost, last_movement_at, updated_at`

func (s *Store) GetInventoryBalance(ctx context.Context, memberID, product string) (inventory.Balance, error) {
	var bal inventory.Balance
	err := s.db.GetContext(ctx, &bal, `
		SELECT `+balanceColumns+` FROM inventory_balances
		WHERE member_id = $1 AND product = $2
	`, memberID, product)
	if err != nil {
		return inventory.Balance{}, mapErr("inventory balance", memberID+"/"+product, err)
	}
	return bal, nil
}

func (s *Store) PutInventoryBalance(ctx context.Context, bal inventory.Balance) (inventory.Balance, error) {
	bal.UpdatedAt = time.Now().UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO inventory_balances (`+balanceColumns+`)
		VALUES (:member_id, :product, :quantity, :value, :average_cost, :last_movement_at, :updated_at)
		ON CONFLICT (member_id, product) DO UPDATE
		SET quantity = EXCLUDED.quantity, value = EXCLUDED.value, average_cost = EXCLUDED.average_cost,
			last_movement_at = EXCLUDED.last_movement_at, updated_at = EXCLUDED.updated_at
	`, bal)
	if err != nil {
		return inventory.Balance{}, err
	}
	return bal, nil
}

func (s *Store) ListInventoryBalances(ctx context.Context, memberID string) ([]inventory.Balance, error) {
	var result []inventory.Balance
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+balanceColumns+` FROM inventory_balances
		WHERE member_id = $1
		ORDER BY product
	`, memberID)
	return result, err
}

// --- AccountingStore --------------------------------------------------------

const entryColumns = `id, member_id, kind, category, amount, description, reference, reversal_of, occurred_on, running_balance, created_at`

func (s *Store) CreateEntry(ctx context.Context, e accounting.Entry) (accounting.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO accounting_entries (`+entryColumns+`)
		VALUES (:id, :member_id, :kind, :category, :amount, :description, :reference, :reversal_of, :occurred_on, :running_balance, :created_at)
	`, e)
	if err != nil {
		return accounting.Entry{}, mapErr("entry", e.ID, err)
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (accounting.Entry, error) {
	var e accounting.Entry
	if err := s.db.GetContext(ctx, &e, `SELECT `+entryColumns+` FROM accounting_entries WHERE id = $1`, id); err != nil {
		return accounting.Entry{}, mapErr("entry", id, err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, memberID string) ([]accounting.Entry, error) {
	var result []accounting.Entry
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+entryColumns+` FROM accounting_entries
		WHERE member_id = $1
		ORDER BY seq
	`, memberID)
	return result, err
}

func (s *Store) LastEntry(ctx context.Context, memberID string) (accounting.Entry, error) {
	var e accounting.Entry
	err := s.db.GetContext(ctx, &e, `
		SELECT `+entryColumns+` FROM accounting_entries
		WHERE member_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, memberID)
	if err != nil {
		return accounting.Entry{}, mapErr("entry for member", memberID, err)
	}
	return e, nil
}
