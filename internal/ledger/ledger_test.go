package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	store      *MemoryStore
	ledger     *Ledger
	productID  uuid.UUID
	locationID uuid.UUID
	ctx        context.Context
}

func (s *LedgerTestSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ledger = New(s.store, NewKeyedMutex(), WithLockTimeout(time.Second))
	s.productID = uuid.New()
	s.locationID = uuid.New()
	s.ctx = context.Background()
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) assertInvariant() {
	entry, err := s.ledger.GetEntry(s.ctx, s.productID, s.locationID)
	require.NoError(s.T(), err)
	if entry == nil {
		return
	}
	assert.GreaterOrEqual(s.T(), entry.ReservedQuantity, 0)
	assert.LessOrEqual(s.T(), entry.ReservedQuantity, entry.Quantity)
}

func (s *LedgerTestSuite) TestAdd_CreatesEntry() {
	change, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)

	assert.True(s.T(), change.Created)
	assert.Equal(s.T(), 0, change.PreviousQuantity)
	assert.Equal(s.T(), 10, change.NewQuantity)

	change, err = s.ledger.Add(s.ctx, s.productID, s.locationID, 5)
	require.NoError(s.T(), err)
	assert.False(s.T(), change.Created)
	assert.Equal(s.T(), 10, change.PreviousQuantity)
	assert.Equal(s.T(), 15, change.NewQuantity)
}

func (s *LedgerTestSuite) TestAdd_RejectsNonPositive() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 0)
	assert.ErrorIs(s.T(), err, ErrInvalidQuantity)

	entry, err := s.ledger.GetEntry(s.ctx, s.productID, s.locationID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), entry)
}

func (s *LedgerTestSuite) TestReserve_RespectsAvailable() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)

	ok, err := s.ledger.Reserve(s.ctx, s.productID, s.locationID, 7)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	entry, _ := s.ledger.GetEntry(s.ctx, s.productID, s.locationID)
	assert.Equal(s.T(), 3, entry.Available())

	ok, err = s.ledger.Reserve(s.ctx, s.productID, s.locationID, 4)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)

	entry, _ = s.ledger.GetEntry(s.ctx, s.productID, s.locationID)
	assert.Equal(s.T(), 7, entry.ReservedQuantity)
	s.assertInvariant()
}

func (s *LedgerTestSuite) TestReserve_MissingEntry() {
	ok, err := s.ledger.Reserve(s.ctx, s.productID, s.locationID, 1)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *LedgerTestSuite) TestRemove_ClampsAtZero() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 4)
	require.NoError(s.T(), err)

	change, err := s.ledger.Remove(s.ctx, s.productID, s.locationID, 9)
	require.NoError(s.T(), err)
	assert.True(s.T(), change.Clamped)
	assert.Equal(s.T(), 4, change.PreviousQuantity)
	assert.Equal(s.T(), 0, change.NewQuantity)
}

func (s *LedgerTestSuite) TestRemove_CutsReservationToQuantity() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)
	ok, err := s.ledger.Reserve(s.ctx, s.productID, s.locationID, 8)
	require.NoError(s.T(), err)
	require.True(s.T(), ok)

	change, err := s.ledger.Remove(s.ctx, s.productID, s.locationID, 5)
	require.NoError(s.T(), err)
	assert.True(s.T(), change.Clamped)
	assert.Equal(s.T(), 5, change.NewQuantity)
	assert.Equal(s.T(), 5, change.NewReserved)
	s.assertInvariant()
}

func (s *LedgerTestSuite) TestRemove_MissingEntry() {
	_, err := s.ledger.Remove(s.ctx, s.productID, s.locationID, 1)
	assert.ErrorIs(s.T(), err, ErrEntryNotFound)
}

func (s *LedgerTestSuite) TestRelease_FloorsAtZero() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)
	_, err = s.ledger.Reserve(s.ctx, s.productID, s.locationID, 3)
	require.NoError(s.T(), err)

	change, err := s.ledger.Release(s.ctx, s.productID, s.locationID, 5)
	require.NoError(s.T(), err)
	assert.True(s.T(), change.Clamped)
	assert.Equal(s.T(), 3, change.PreviousReserved)
	assert.Equal(s.T(), 0, change.NewReserved)
	assert.Equal(s.T(), 10, change.NewQuantity)
}

func (s *LedgerTestSuite) TestConsume_RemovesAndReleases() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)
	_, err = s.ledger.Reserve(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)

	change, err := s.ledger.Consume(s.ctx, s.productID, s.locationID, 4)
	require.NoError(s.T(), err)
	assert.False(s.T(), change.Clamped)
	assert.Equal(s.T(), 6, change.NewQuantity)
	assert.Equal(s.T(), 6, change.NewReserved)
	s.assertInvariant()
}

func (s *LedgerTestSuite) TestWithdraw_Strict() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)
	_, err = s.ledger.Reserve(s.ctx, s.productID, s.locationID, 6)
	require.NoError(s.T(), err)

	_, err = s.ledger.Withdraw(s.ctx, s.productID, s.locationID, 5)
	assert.ErrorIs(s.T(), err, ErrInsufficientStock)

	change, err := s.ledger.Withdraw(s.ctx, s.productID, s.locationID, 4)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 6, change.NewQuantity)
	s.assertInvariant()
}

func (s *LedgerTestSuite) TestSetAbsolute_ReturnsDifference() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)

	change, err := s.ledger.SetAbsolute(s.ctx, s.productID, s.locationID, 7)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), -3, change.Difference())

	change, err = s.ledger.SetAbsolute(s.ctx, s.productID, s.locationID, 12)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 5, change.Difference())

	_, err = s.ledger.SetAbsolute(s.ctx, s.productID, s.locationID, -1)
	assert.ErrorIs(s.T(), err, ErrInvalidQuantity)
}

func (s *LedgerTestSuite) TestTotalsAndOccupancy() {
	other := uuid.New()
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 10)
	require.NoError(s.T(), err)
	_, err = s.ledger.Add(s.ctx, s.productID, other, 5)
	require.NoError(s.T(), err)
	_, err = s.ledger.Add(s.ctx, uuid.New(), s.locationID, 7)
	require.NoError(s.T(), err)

	total, err := s.ledger.TotalForProduct(s.ctx, s.productID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 15, total)

	occupancy, err := s.ledger.Occupancy(s.ctx, s.locationID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 17, occupancy)
}

func (s *LedgerTestSuite) TestObserverNotified() {
	var seen []models.LedgerEntry
	s.ledger.AddObserver(func(_ context.Context, e models.LedgerEntry) {
		seen = append(seen, e)
	})

	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 3)
	require.NoError(s.T(), err)
	ok, err := s.ledger.Reserve(s.ctx, s.productID, s.locationID, 5)
	require.NoError(s.T(), err)
	require.False(s.T(), ok)

	require.Len(s.T(), seen, 1)
	assert.Equal(s.T(), 3, seen[0].Quantity)
}

func (s *LedgerTestSuite) TestConcurrentReserve_NeverOversells() {
	_, err := s.ledger.Add(s.ctx, s.productID, s.locationID, 50)
	require.NoError(s.T(), err)

	var wg sync.WaitGroup
	var granted int64
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ledger.Reserve(s.ctx, s.productID, s.locationID, 1)
			if err == nil && ok {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(s.T(), int64(50), granted)
	entry, _ := s.ledger.GetEntry(s.ctx, s.productID, s.locationID)
	assert.Equal(s.T(), 50, entry.ReservedQuantity)
	assert.Equal(s.T(), 0, entry.Available())
}

func (s *LedgerTestSuite) TestLockTimeout() {
	locker := NewKeyedMutex()
	ledger := New(s.store, locker, WithLockTimeout(20*time.Millisecond))

	release, err := locker.Acquire(s.ctx, EntryKey(s.productID, s.locationID))
	require.NoError(s.T(), err)
	defer release()

	_, err = ledger.Add(s.ctx, s.productID, s.locationID, 1)
	assert.ErrorIs(s.T(), err, ErrLockTimeout)
}
