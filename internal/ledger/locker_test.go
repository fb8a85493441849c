package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Acquire(ctx, "k")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 0, km.held())
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := km.Acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	lockCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	releaseB, err := km.Acquire(lockCtx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestKeyedMutex_TimeoutCleansUp(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	release, err := km.Acquire(ctx, "k")
	require.NoError(t, err)

	_, err = AcquireWithTimeout(ctx, km, "k", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release() // second call is a no-op
	assert.Equal(t, 0, km.held())
}

func TestRedisLocker_KeyLayout(t *testing.T) {
	locker := NewRedisLocker(nil, "stockflow:", 0, 0, zeroLogger())
	assert.Equal(t, "stockflow:lock:entry:x", locker.redisKey("entry:x"))
	assert.Equal(t, 30*time.Second, locker.ttl)
}

func zeroLogger() zerolog.Logger {
	return zerolog.Nop()
}
