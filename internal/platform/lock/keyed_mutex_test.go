package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "savings:m1:sukarela", 0)
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, km.Len(), "idle keys are dropped")
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()
	unlockA, err := km.Lock(context.Background(), "a", 0)
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := km.Lock(context.Background(), "b", 10*time.Millisecond)
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutex_WaitTimeout(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "k", 0)
	require.NoError(t, err)

	_, err = km.Lock(context.Background(), "k", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "k", 0)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = km.Lock(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "shu:plan:p1", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "shu:plan:p1", time.Minute, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)

	_, err = locker.Acquire(ctx, "shu:plan:p1", time.Minute, 0)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))

	lease, err = locker.Acquire(ctx, "shu:plan:p1", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}
