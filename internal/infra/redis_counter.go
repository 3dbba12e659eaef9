package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// DefaultRedisKeyPrefix namespaces the counter keys.
const DefaultRedisKeyPrefix = "contentmon:"

// incrementScript bumps the counter unless ARGV[1] was the last detection applied.
const incrementScript = `
if ARGV[1] ~= '' and redis.call('GET', KEYS[2]) == ARGV[1] then
	return tonumber(redis.call('GET', KEYS[1]) or '0')
end
local n = redis.call('INCR', KEYS[1])
redis.call('SET', KEYS[2], ARGV[1])
return n
`

// RedisOptions holds connection settings for the shared counter.
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// redisCounterClient is the part of redis.Client the store uses.
type redisCounterClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// RedisCounterStore implements domain.CounterStore on Redis, so several
// devices of one family can share a single counter.
type RedisCounterStore struct {
	client   redisCounterClient
	countKey string
	lastKey  string
}

// NewRedisCounterStore connects to Redis with opts.
func NewRedisCounterStore(opts RedisOptions) *RedisCounterStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisCounterStoreWithClient(client, opts.KeyPrefix)
}

func newRedisCounterStoreWithClient(client redisCounterClient, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisCounterStore{
		client:   client,
		countKey: prefix + blockedAttemptsCounter,
		lastKey:  prefix + blockedAttemptsCounter + ":last_detection_id",
	}
}

// Increment atomically adds one unless detectionID was the last one applied.
func (s *RedisCounterStore) Increment(ctx context.Context, detectionID string) (int64, error) {
	n, err := s.client.Eval(ctx, incrementScript, []string{s.countKey, s.lastKey}, detectionID).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}
	return n, nil
}

// Count returns the current value.
func (s *RedisCounterStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, s.countKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *RedisCounterStore) Close() error {
	return s.client.Close()
}

// Ensure RedisCounterStore implements domain.CounterStore.
var _ domain.CounterStore = (*RedisCounterStore)(nil)
