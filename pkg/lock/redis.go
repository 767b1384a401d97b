package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only the holder's token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis lock (SET NX PX + token-checked
// delete). The TTL bounds how long a crashed holder can block a key.
type RedisLocker struct {
	client        redis.UniversalClient
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl, retryInterval time.Duration) *RedisLocker {
	if retryInterval <= 0 {
		retryInterval = 25 * time.Millisecond
	}
	return &RedisLocker{
		client:        client,
		prefix:        "lock:",
		ttl:           ttl,
		retryInterval: retryInterval,
	}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := r.prefix + key

	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring %s: %w", redisKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, redisKey)
		case <-ticker.C:
		}
	}

	return func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err()
	}, nil
}

// NewRedisClient builds a client and pings it, retrying a few times while
// Redis comes up.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Network:  "tcp",
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	const maxRetries = 5
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
}
