package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a key lock could not be acquired before the deadline.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker serializes work on a string key. Acquire must honour ctx cancellation so that
// a waiter never blocks past its deadline.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// EntryKey identifies the lock guarding one ledger entry
func EntryKey(productID, locationID uuid.UUID) string {
	return "entry:" + productID.String() + ":" + locationID.String()
}

// LocationKey identifies the lock guarding capacity checks on a location
func LocationKey(locationID uuid.UUID) string {
	return "location:" + locationID.String()
}

func OrderKey(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

func PickListKey(pickListID uuid.UUID) string {
	return "picklist:" + pickListID.String()
}

func ReturnKey(returnID uuid.UUID) string {
	return "return:" + returnID.String()
}

func ReceiptKey(receiptID uuid.UUID) string {
	return "receipt:" + receiptID.String()
}

// AlertKey guards the check-then-create of a product's low-stock alert
func AlertKey(productID uuid.UUID) string {
	return "alert:" + productID.String()
}

// AcquireWithTimeout bounds a lock wait by timeout on top of any deadline already on ctx.
func AcquireWithTimeout(ctx context.Context, locker Locker, key string, timeout time.Duration) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return locker.Acquire(lockCtx, key)
}

// KeyedMutex is an in-process Locker. Each key gets a one-slot channel that
// is created on first use and dropped once nobody holds or waits for it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	slot chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	kl, ok := k.locks[key]
	if !ok {
		kl = &keyLock{slot: make(chan struct{}, 1)}
		k.locks[key] = kl
	}
	kl.refs++
	k.mu.Unlock()

	select {
	case kl.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.slot
				k.unref(key, kl)
			})
		}, nil
	case <-ctx.Done():
		k.unref(key, kl)
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
}

func (k *KeyedMutex) unref(key string, kl *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(k.locks, key)
	}
}

// held returns the number of keys currently tracked, for tests
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
