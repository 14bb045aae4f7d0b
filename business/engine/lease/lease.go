// Package lease provides a redis backed lease so at most one engine
// instance polls a shared store at a time.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when this instance still owns it.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Redis is a lease on a single redis key. Each instance holds a unique owner
// token, so an instance can extend its own lease but never steal another's.
type Redis struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

// New creates a lease against the given key. The ttl bounds how long a dead
// instance blocks the others.
func New(client *redis.Client, key string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if key == "" {
		return nil, errors.New("lease key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("lease ttl must be greater than 0")
	}

	return &Redis{
		client: client,
		key:    key,
		owner:  uuid.NewString(),
		ttl:    ttl,
	}, nil
}

// Acquire takes the lease when it is free, extends it when this instance
// already holds it, and reports false when another instance does.
func (l *Redis) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		return true, nil
	}

	owner, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			//holder vanished between the two calls, next poll takes it
			return false, nil
		}
		return false, fmt.Errorf("get owner: %w", err)
	}

	if owner != l.owner {
		return false, nil
	}

	if err := l.client.Expire(ctx, l.key, l.ttl).Err(); err != nil {
		return false, fmt.Errorf("extend lease: %w", err)
	}
	return true, nil
}

// Release gives the lease up if this instance holds it.
func (l *Redis) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("release script: %w", err)
	}
	return nil
}
