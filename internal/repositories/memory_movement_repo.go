package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockflow/internal/models"
)

// MemoryMovementRepository keeps movements in process memory, for running the
// engine without a database.
type MemoryMovementRepository struct {
	mu        sync.RWMutex
	movements []models.MovementRecord
}

func NewMemoryMovementRepository() *MemoryMovementRepository {
	return &MemoryMovementRepository{}
}

func (r *MemoryMovementRepository) Create(_ context.Context, m *models.MovementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *MemoryMovementRepository) List(_ context.Context, filter models.MovementFilter) ([]*models.MovementRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.MovementRecord
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if !matchesMovement(&m, filter) {
			continue
		}
		out = append(out, &m)
	}

	limit, offset := pageDefaults(filter.Limit, filter.Offset)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesMovement(m *models.MovementRecord, f models.MovementFilter) bool {
	if f.ProductID != nil && m.ProductID != *f.ProductID {
		return false
	}
	if f.LocationID != nil {
		from := m.FromLocationID != nil && *m.FromLocationID == *f.LocationID
		to := m.ToLocationID != nil && *m.ToLocationID == *f.LocationID
		if !from && !to {
			return false
		}
	}
	if f.Kind != nil && m.Kind != *f.Kind {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !m.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (r *MemoryMovementRepository) DailySummary(_ context.Context, from, to time.Time) ([]*models.DailyMovementSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		day  time.Time
		kind models.MovementKind
	}
	buckets := make(map[key]*models.DailyMovementSummary)
	for _, m := range r.movements {
		if m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
			continue
		}
		t := m.CreatedAt.UTC()
		k := key{day: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), kind: m.Kind}
		s, ok := buckets[k]
		if !ok {
			s = &models.DailyMovementSummary{Day: k.day, Kind: k.kind}
			buckets[k] = s
		}
		s.Movements++
		s.TotalQuantity += m.Quantity
	}

	out := make([]*models.DailyMovementSummary, 0, len(buckets))
	for _, s := range buckets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

// Len reports how many movements have been recorded
func (r *MemoryMovementRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.movements)
}
