package lock

import (
	"context"
	"errors"
	"time"
)

// LocalLocker is a Locker for a single process. The ttl is ignored: a lease
// lives until released.
type LocalLocker struct {
	keys *KeyedMutex
}

// NewLocalLocker returns an in-process Locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: NewKeyedMutex()}
}

var _ Locker = (*LocalLocker)(nil)

// Acquire implements Locker.
func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration, wait time.Duration) (Lease, error) {
	if wait <= 0 {
		unlock, ok := l.keys.TryLock(key)
		if !ok {
			return nil, ErrNotAcquired
		}
		return localLease(unlock), nil
	}
	unlock, err := l.keys.Lock(ctx, key, wait)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, ErrNotAcquired
	}
	return localLease(unlock), nil
}

type localLease func()

func (l localLease) Release(context.Context) error {
	l()
	return nil
}
