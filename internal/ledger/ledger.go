// Package ledger holds the authoritative quantity and reservation state for every
// (product, location) pair. All mutations go through Ledger and run under a
// per-pair lock; reads may observe a slightly stale snapshot.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrEntryNotFound     = errors.New("ledger entry not found")
	ErrInsufficientStock = errors.New("insufficient available stock")
)

// errNoChange aborts a mutation without saving
var errNoChange = errors.New("no change")

const DefaultLockTimeout = 5 * time.Second

// Store persists ledger entries. Get returns nil, nil when the pair has no entry.
type Store interface {
	Get(ctx context.Context, productID, locationID uuid.UUID) (*models.LedgerEntry, error)
	Save(ctx context.Context, entry *models.LedgerEntry) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.LedgerEntry, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]*models.LedgerEntry, error)
}

// Observer is notified after a mutation has been saved
type Observer func(ctx context.Context, entry models.LedgerEntry)

// Change describes one committed mutation
type Change struct {
	Entry            models.LedgerEntry
	Created          bool
	PreviousQuantity int
	NewQuantity      int
	PreviousReserved int
	NewReserved      int
	// Clamped is set when the request asked for more than the entry held and the
	// result was floored instead of rejected.
	Clamped bool
}

// Difference is the signed change in quantity
func (c Change) Difference() int {
	return c.NewQuantity - c.PreviousQuantity
}

type Ledger struct {
	store       Store
	locker      Locker
	lockTimeout time.Duration
	now         func() time.Time
	observers   []Observer
	logger      zerolog.Logger
}

type Option func(*Ledger)

func WithLockTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.lockTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithObserver(obs Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, obs) }
}

func New(store Store, locker Locker, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		locker:      locker,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddObserver registers an observer after construction
func (l *Ledger) AddObserver(obs Observer) {
	l.observers = append(l.observers, obs)
}

// WithLock runs fn while holding key on the ledger's locker, using the ledger's lock timeout.
// Callers use it to serialize work that spans several ledger calls.
func (l *Ledger) WithLock(ctx context.Context, key string, fn func() error) error {
	release, err := AcquireWithTimeout(ctx, l.locker, key, l.lockTimeout)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// GetEntry returns the entry for the pair, or nil if none exists
func (l *Ledger) GetEntry(ctx context.Context, productID, locationID uuid.UUID) (*models.LedgerEntry, error) {
	return l.store.Get(ctx, productID, locationID)
}

// Add increments quantity, creating the entry if absent
func (l *Ledger) Add(ctx context.Context, productID, locationID uuid.UUID, qty int) (Change, error) {
	if qty <= 0 {
		return Change{}, ErrInvalidQuantity
	}
	return l.mutate(ctx, productID, locationID, true, func(e *models.LedgerEntry, c *Change) error {
		e.Quantity += qty
		return nil
	})
}

// Remove decrements quantity, flooring at zero. Removing more than is on hand is
// not an error but is flagged on the Change and logged, as is cutting into reserved stock.
func (l *Ledger) Remove(ctx context.Context, productID, locationID uuid.UUID, qty int) (Change, error) {
	if qty <= 0 {
		return Change{}, ErrInvalidQuantity
	}
	return l.mutate(ctx, productID, locationID, false, func(e *models.LedgerEntry, c *Change) error {
		if qty > e.Quantity {
			c.Clamped = true
			l.logger.Warn().
				Str("product_id", productID.String()).
				Str("location_id", locationID.String()).
				Int("requested", qty).
				Int("on_hand", e.Quantity).
				Msg("removal exceeds stock on hand, clamping to zero")
			e.Quantity = 0
		} else {
			e.Quantity -= qty
		}
		l.clampReserved(e, c)
		return nil
	})
}

// Reserve holds qty for a later pick. It succeeds only when available covers qty;
// otherwise nothing changes and false is returned.
func (l *Ledger) Reserve(ctx context.Context, productID, locationID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	_, err := l.mutate(ctx, productID, locationID, false, func(e *models.LedgerEntry, c *Change) error {
		if e.Available() < qty {
			return errNoChange
		}
		e.ReservedQuantity += qty
		return nil
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNoChange), errors.Is(err, ErrEntryNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Release gives back reserved quantity, flooring at zero
func (l *Ledger) Release(ctx context.Context, productID, locationID uuid.UUID, qty int) (Change, error) {
	if qty <= 0 {
		return Change{}, ErrInvalidQuantity
	}
	return l.mutate(ctx, productID, locationID, false, func(e *models.LedgerEntry, c *Change) error {
		if qty > e.ReservedQuantity {
			c.Clamped = true
			e.ReservedQuantity = 0
		} else {
			e.ReservedQuantity -= qty
		}
		return nil
	})
}

// Consume turns a reservation into a removal in one step: reserved and quantity
// both drop by qty.
func (l *Ledger) Consume(ctx context.Context, productID, locationID uuid.UUID, qty int) (Change, error) {
	if qty <= 0 {
		return Change{}, ErrInvalidQuantity
	}
	return l.mutate(ctx, productID, locationID, false, func(e *models.LedgerEntry, c *Change) error {
		if qty > e.ReservedQuantity {
			c.Clamped = true
			e.ReservedQuantity = 0
		} else {
			e.ReservedQuantity -= qty
		}
		if qty > e.Quantity {
			c.Clamped = true
			l.logger.Warn().
				Str("product_id", productID.String()).
				Str("location_id", locationID.String()).
				Int("requested", qty).
				Int("on_hand", e.Quantity).
				Msg("consumption exceeds stock on hand, clamping to zero")
			e.Quantity = 0
		} else {
			e.Quantity -= qty
		}
		l.clampReserved(e, c)
		return nil
	})
}

// Withdraw removes qty only if that much is available (unreserved)
func (l *Ledger) Withdraw(ctx context.Context, productID, locationID uuid.UUID, qty int) (Change, error) {
	if qty <= 0 {
		return Change{}, ErrInvalidQuantity
	}
	return l.mutate(ctx, productID, locationID, false, func(e *models.LedgerEntry, c *Change) error {
		if e.Available() < qty {
			return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, e.Available(), qty)
		}
		e.Quantity -= qty
		return nil
	})
}

// SetAbsolute overwrites quantity for stock-count corrections. The signed
// difference is available via Change.Difference.
func (l *Ledger) SetAbsolute(ctx context.Context, productID, locationID uuid.UUID, newQty int) (Change, error) {
	if newQty < 0 {
		return Change{}, fmt.Errorf("%w: absolute quantity cannot be negative", ErrInvalidQuantity)
	}
	return l.mutate(ctx, productID, locationID, true, func(e *models.LedgerEntry, c *Change) error {
		e.Quantity = newQty
		l.clampReserved(e, c)
		return nil
	})
}

func (l *Ledger) clampReserved(e *models.LedgerEntry, c *Change) {
	if e.ReservedQuantity <= e.Quantity {
		return
	}
	c.Clamped = true
	l.logger.Warn().
		Str("product_id", e.ProductID.String()).
		Str("location_id", e.LocationID.String()).
		Int("reserved", e.ReservedQuantity).
		Int("quantity", e.Quantity).
		Msg("quantity fell below reservations, cutting reserved down")
	e.ReservedQuantity = e.Quantity
}

func (l *Ledger) mutate(ctx context.Context, productID, locationID uuid.UUID, create bool, apply func(*models.LedgerEntry, *Change) error) (Change, error) {
	release, err := AcquireWithTimeout(ctx, l.locker, EntryKey(productID, locationID), l.lockTimeout)
	if err != nil {
		return Change{}, err
	}
	defer release()

	entry, err := l.store.Get(ctx, productID, locationID)
	if err != nil {
		return Change{}, fmt.Errorf("load ledger entry: %w", err)
	}

	var change Change
	if entry == nil {
		if !create {
			return Change{}, ErrEntryNotFound
		}
		entry = &models.LedgerEntry{ProductID: productID, LocationID: locationID}
		change.Created = true
	}
	change.PreviousQuantity = entry.Quantity
	change.PreviousReserved = entry.ReservedQuantity

	if err := apply(entry, &change); err != nil {
		return Change{}, err
	}
	entry.UpdatedAt = l.now()

	if err := l.store.Save(ctx, entry); err != nil {
		return Change{}, fmt.Errorf("save ledger entry: %w", err)
	}

	change.Entry = *entry
	change.NewQuantity = entry.Quantity
	change.NewReserved = entry.ReservedQuantity

	for _, obs := range l.observers {
		obs(ctx, change.Entry)
	}
	return change, nil
}

// EntriesForProduct lists every entry of a product
func (l *Ledger) EntriesForProduct(ctx context.Context, productID uuid.UUID) ([]*models.LedgerEntry, error) {
	return l.store.ListByProduct(ctx, productID)
}

// EntriesAtLocation lists every entry stored at a location
func (l *Ledger) EntriesAtLocation(ctx context.Context, locationID uuid.UUID) ([]*models.LedgerEntry, error) {
	return l.store.ListByLocation(ctx, locationID)
}

// Occupancy is the sum of quantities at a location
func (l *Ledger) Occupancy(ctx context.Context, locationID uuid.UUID) (int, error) {
	entries, err := l.store.ListByLocation(ctx, locationID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total, nil
}

// TotalForProduct is the sum of quantities of a product over all locations
func (l *Ledger) TotalForProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	entries, err := l.store.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total, nil
}
