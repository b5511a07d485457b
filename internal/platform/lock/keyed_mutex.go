package lock

import (
	"context"
	"sync"
	"time"
)

// KeyedMutex serializes callers per key. Different keys never block each
// other. Idle keys are dropped so the map only holds contended or held keys.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

type keyEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyEntry)}
}

// Lock takes key, waiting at most wait (forever when wait <= 0) or until ctx
// is done. On success the returned func releases the key; it is safe to call
// more than once.
func (k *KeyedMutex) Lock(ctx context.Context, key string, wait time.Duration) (func(), error) {
	entry := k.ref(key)

	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case entry.ch <- struct{}{}:
	case <-timeout:
		k.unref(key)
		return nil, ErrNotAcquired
	case <-ctx.Done():
		k.unref(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			k.unref(key)
		})
	}, nil
}

// TryLock takes key only if it is free.
func (k *KeyedMutex) TryLock(key string) (func(), bool) {
	entry := k.ref(key)
	select {
	case entry.ch <- struct{}{}:
	default:
		k.unref(key)
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			k.unref(key)
		})
	}, true
}

func (k *KeyedMutex) ref(key string) *keyEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (k *KeyedMutex) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry := k.entries[key]
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
