package memory

import (
	"context"
	"sort"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
)

// InventoryStore implementation ------------------------------------------------

func (s *Store) CreateInventoryItem(_ context.Context, item inventory.Item) (inventory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = s.nextIDLocked()
	} else if _, ok := s.itemsByID[item.ID]; ok {
		return inventory.Item{}, exists("inventory item", item.ID)
	}
	item.CreatedAt = s.now()
	s.itemsByID[item.ID] = item
	s.items[item.MemberID] = append(s.items[item.MemberID], item)
	return item, nil
}

func (s *Store) GetInventoryItem(_ context.Context, id string) (inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return inventory.Item{}, notFound("inventory item", id)
	}
	return item, nil
}

func (s *Store) ListInventoryItems(_ context.Context, memberID, product string) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []inventory.Item
	for _, item := range s.items[memberID] {
		if product == "" || item.Product == product {
			result = append(result, item)
		}
	}
	return result, nil
}

func (s *Store) GetInventoryBalance(_ context.Context, memberID, product string) (inventory.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, ok := s.balances[balanceKey{memberID, product}]
	if !ok {
		return inventory.Balance{}, notFound("inventory balance", memberID+"/"+product)
	}
	return bal, nil
}

func (s *Store) PutInventoryBalance(_ context.Context, bal inventory.Balance) (inventory.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal.UpdatedAt = s.now()
	s.balances[balanceKey{bal.MemberID, bal.Product}] = bal
	return bal, nil
}

func (s *Store) ListInventoryBalances(_ context.Context, memberID string) ([]inventory.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []inventory.Balance
	for key, bal := range s.balances {
		if key.memberID == memberID {
			result = append(result, bal)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Product < result[j].Product })
	return result, nil
}

// AccountingStore implementation -----------------------------------------------

func (s *Store) CreateEntry(_ context.Context, e accounting.Entry) (accounting.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	} else if _, ok := s.entriesByID[e.ID]; ok {
		return accounting.Entry{}, exists("entry", e.ID)
	}
	e.CreatedAt = s.now()
	s.entriesByID[e.ID] = e
	s.entries[e.MemberID] = append(s.entries[e.MemberID], e)
	return e, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (accounting.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entriesByID[id]
	if !ok {
		return accounting.Entry{}, notFound("entry", id)
	}
	return e, nil
}

func (s *Store) ListEntries(_ context.Context, memberID string) ([]accounting.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[memberID]
	result := make([]accounting.Entry, len(entries))
	copy(result, entries)
	return result, nil
}

func (s *Store) LastEntry(_ context.Context, memberID string) (accounting.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[memberID]
	if len(entries) == 0 {
		return accounting.Entry{}, notFound("entry for member", memberID)
	}
	return entries[len(entries)-1], nil
}
