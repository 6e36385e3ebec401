package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"simtrack/internal/platform/redis"
)

// lockCommands is the slice of the Redis API the leader lock needs.
type lockCommands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// RedisLocker elects a sweep leader with a SET NX PX lock. Each instance
// holds a random identity so the lock is observable in Redis; expiry rather
// than explicit release hands leadership over, which keeps the scheme safe
// against crashed holders.
type RedisLocker struct {
	client   lockCommands
	instance string
}

// NewRedisLocker constructs a Locker backed by the given client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:   client,
		instance: uuid.NewString(),
	}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.instance, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if ok {
		return true, nil
	}
	// Re-entrant for the current holder, so a restart that beats the TTL
	// does not lose a sweep window.
	holder, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		// The lock expired between the two commands; contend for it again.
		ok, err := l.client.SetNX(ctx, key, l.instance, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("acquire sweep lock: %w", err)
		}
		return ok, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect sweep lock: %w", err)
	}
	return holder == l.instance, nil
}
