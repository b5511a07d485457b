// Package lock provides keyed mutual exclusion: an in-process keyed mutex,
// and Locker implementations backed by it or by Redis.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when a lock could not be taken within the wait.
var ErrNotAcquired = errors.New("lock not acquired")

// Lease is a held lock.
type Lease interface {
	// Release gives the lock up. Releasing twice is a no-op.
	Release(ctx context.Context) error
}

// Locker acquires named exclusive locks.
type Locker interface {
	// Acquire blocks for at most wait trying to take key. ttl bounds how long
	// a lease survives a crashed holder where the backend supports expiry.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error)
}
