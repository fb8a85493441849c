package ledger

import (
	"context"
	"sort"
	"sync"

	"stockflow/internal/models"

	"github.com/google/uuid"
)

type pairKey struct {
	product  uuid.UUID
	location uuid.UUID
}

// MemoryStore keeps ledger entries in process memory. It hands out copies so
// callers cannot mutate stored state behind the ledger's back.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[pairKey]models.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[pairKey]models.LedgerEntry)}
}

func (m *MemoryStore) Get(_ context.Context, productID, locationID uuid.UUID) (*models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[pairKey{productID, locationID}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStore) Save(_ context.Context, entry *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[pairKey{entry.ProductID, entry.LocationID}] = *entry
	return nil
}

func (m *MemoryStore) ListByProduct(_ context.Context, productID uuid.UUID) ([]*models.LedgerEntry, error) {
	return m.list(func(k pairKey) bool { return k.product == productID }), nil
}

func (m *MemoryStore) ListByLocation(_ context.Context, locationID uuid.UUID) ([]*models.LedgerEntry, error) {
	return m.list(func(k pairKey) bool { return k.location == locationID }), nil
}

func (m *MemoryStore) list(match func(pairKey) bool) []*models.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.LedgerEntry
	for k, e := range m.entries {
		if match(k) {
			entry := e
			out = append(out, &entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID.String() < out[j].ProductID.String()
		}
		return out[i].LocationID.String() < out[j].LocationID.String()
	})
	return out
}
