// Package lock provides per-key mutual exclusion so that concurrent webhooks
// for the same call are applied one at a time.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker serializes work per key. Acquire blocks until the key is free or the
// context is done; the returned release function must always be called.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// KeyMutex is an in-process Locker backed by a map of mutexes. It is the
// single-node fallback and the implementation used in tests; multi-instance
// deployments use the Redis-backed locker instead.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex creates an empty in-process locker.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*entry)}
}

// Acquire locks the given key. The ttl is ignored; in-process locks cannot
// leak past the process.
func (k *KeyMutex) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	release := func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
	return release, nil
}

var _ Locker = (*KeyMutex)(nil)
