package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	redis "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the keys written by RedisStore.
const DefaultRedisPrefix = "condascan:listing:"

// RedisStore keeps listings in Redis, letting several machines or users
// share one cache. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

// OpenRedis connects to the Redis server at rawURL.
func OpenRedis(ctx context.Context, rawURL, prefix string, ttl time.Duration, logger *log.Logger) (*RedisStore, error) {
	if rawURL == "" {
		return nil, errors.New("redis cache: no url configured")
	}
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: parsing url: %w", err)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis cache: connecting: %w", err)
	}
	logger.Debug("connected to redis cache", "addr", opt.Addr, "prefix", prefix)
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, logger: logger}, nil
}

func (s *RedisStore) key(env string) string {
	return s.prefix + env
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, env string) (Lookup, error) {
	val, err := s.client.Get(ctx, s.key(env)).Result()
	if errors.Is(err, redis.Nil) {
		return Miss, nil
	}
	if err != nil {
		return Miss, fmt.Errorf("redis cache: reading %s: %w", env, err)
	}
	return Lookup{Lines: splitLines(val), Hit: true}, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, env string, lines []string) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(env), strings.Join(lines, "\n"), ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: writing %s: %w", env, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, envs ...string) error {
	if len(envs) == 0 {
		return nil
	}
	keys := make([]string, len(envs))
	for i, env := range envs {
		keys[i] = s.key(env)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis cache: deleting: %w", err)
	}
	return nil
}

// Clear implements Store. Only keys under the store's prefix are removed.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis cache: scanning keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis cache: clearing: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
