// Package locks provides the Redis-backed advisory lock that marks a
// location as being counted. The lock is informational: a failed
// acquire surfaces who else is counting, it never blocks the operator.
package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stocktake/internal/core/id"
	"stocktake/internal/domain/opname"
)

// acquireScript takes the lock when free or already ours, refreshing
// the TTL. Returns the current holder either way.
var acquireScript = redis.NewScript(`
	local holder = redis.call("GET", KEYS[1])
	if holder == false or holder == ARGV[1] then
		redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
		return {1, ARGV[1]}
	end
	return {0, holder}
`)

// releaseScript deletes the lock only when we still hold it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// Config holds Redis connection settings for the lock store.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisLocationLocker implements opname.LocationLocker on Redis with
// SET NX semantics and a TTL, so crashed sessions free up on their own.
type RedisLocationLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// New connects to Redis and returns a location locker.
func New(cfg Config) (*RedisLocationLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &RedisLocationLocker{
		client:    client,
		keyPrefix: "stocktake:opname:lock",
		ttl:       ttl,
	}, nil
}

func (l *RedisLocationLocker) key(locationID id.ID) string {
	return l.keyPrefix + ":" + locationID.String()
}

// Acquire tries to take the lock for a location. When someone else
// holds it, returns false and the holder's name.
func (l *RedisLocationLocker) Acquire(ctx context.Context, locationID id.ID, owner string) (bool, string, error) {
	res, err := acquireScript.Run(ctx, l.client,
		[]string{l.key(locationID)},
		owner, l.ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return false, "", fmt.Errorf("acquire location lock: %w", err)
	}
	if len(res) != 2 {
		return false, "", fmt.Errorf("acquire location lock: unexpected reply %v", res)
	}

	acquired, _ := res[0].(int64)
	holder, _ := res[1].(string)
	return acquired == 1, holder, nil
}

// Release frees the lock if still held by owner.
func (l *RedisLocationLocker) Release(ctx context.Context, locationID id.ID, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(locationID)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release location lock: %w", err)
	}
	return nil
}

// Ping checks the Redis connection, for readiness probes.
func (l *RedisLocationLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (l *RedisLocationLocker) Close() error {
	return l.client.Close()
}

var _ opname.LocationLocker = (*RedisLocationLocker)(nil)
