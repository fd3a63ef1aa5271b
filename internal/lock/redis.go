package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only if it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a distributed lock built on SET NX PX.
type Redis struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
	// Retry is the delay between acquisition attempts.
	Retry time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl, wait time.Duration) *Redis {
	return &Redis{
		Client: client,
		Prefix: prefix,
		TTL:    ttl,
		Wait:   wait,
		Retry:  25 * time.Millisecond,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.Prefix + key
	owner := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.Wait)
	defer cancel()

	for {
		ok, err := r.Client.SetNX(ctx, fullKey, owner, r.TTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(r.Retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseScript.Run(context.Background(), r.Client, []string{fullKey}, owner)
		})
	}, nil
}
