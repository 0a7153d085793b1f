// Package redislock implements per-key locking on Redis SET NX, so webhook
// processing for one call stays serialized across API instances.
package redislock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voicedesk/callflow/internal/lock"
)

// retryInterval is how often a blocked Acquire re-attempts SET NX.
const retryInterval = 25 * time.Millisecond

// Locker is a Redis-backed implementation of lock.Locker.
type Locker struct {
	rdb *redis.Client
}

// New creates a locker on the given Redis connection.
func New(addr, password string, dbNumber int) *Locker {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNumber,
	})
	return &Locker{rdb: rdb}
}

// Ping checks if Redis is reachable.
func (l *Locker) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// Acquire polls SET NX until the key is free or the context is done. The ttl
// bounds how long a crashed holder can block other instances. Release only
// deletes the key if this holder still owns it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	release := func() {
		// Compare-and-delete so an expired lock taken over by another
		// holder is not removed from under them.
		const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
		_ = l.rdb.Eval(context.Background(), script, []string{key}, token).Err()
	}
	return release, nil
}

var _ lock.Locker = (*Locker)(nil)
