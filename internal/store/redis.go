package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// casScript performs a compare-and-set: write ARGV[2] to KEYS[1] only if the
// key's current value equals ARGV[1] ("" meaning "did not exist"), applying a
// TTL in milliseconds from ARGV[3] (0 = no expiry). Returns 1 on success, 0 on
// a lost race. Mirrors the precompiled-script approach in
// routers/redis_stats_store.go, collapsed to a single generic operation
// instead of one script per stat field.
const casScript = `
local current = redis.call('GET', KEYS[1])
local expected = ARGV[1]
if current == false then current = "" end
if current ~= expected then
  return 0
end
local next = ARGV[2]
if next == "" then
  redis.call('DEL', KEYS[1])
else
  local ttlMs = tonumber(ARGV[3])
  if ttlMs > 0 then
    redis.call('SET', KEYS[1], next, 'PX', ttlMs)
  else
    redis.call('SET', KEYS[1], next)
  end
end
return 1
`

// RedisStore is a Store backed by a shared Redis instance, for coordination
// across multiple gateway processes. Update is a bounded optimistic-
// concurrency retry loop around a Lua compare-and-set, the same shape as the
// per-field Lua scripts in routers/redis_stats_store.go.
type RedisStore struct {
	client redis.UniversalClient
	cas    *redis.Script
	prefix string
}

// NewRedisStore creates a RedisStore. keyPrefix namespaces all keys (e.g.
// "llmgate:store:") to avoid collisions with unrelated data on a shared
// Redis instance.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		client: client,
		cas:    redis.NewScript(casScript),
		prefix: keyPrefix,
	}
}

func (s *RedisStore) fullKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.client.Set(ctx, s.fullKey(key), value, 0).Err()
	}
	return s.client.Set(ctx, s.fullKey(key), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.fullKey(key)).Err()
}

// Update retries the CAS loop up to maxCASRetries times; on exhaustion it
// returns ErrCASExhausted and leaves the key untouched, matching spec.md §5's
// "dropped-with-warning" semantics — callers log and move on rather than
// fail the request.
func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	full := s.fullKey(key)
	ttlMs := int64(0)
	if ttl > 0 {
		ttlMs = ttl.Milliseconds()
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		current, found, err := s.Get(ctx, key)
		if err != nil {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		expected := string(current)
		nextStr := string(next)

		ok, err := s.cas.Run(ctx, s.client, []string{full}, expected, nextStr, ttlMs).Bool()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		// Lost the race to a concurrent writer; retry with a fresh read.
	}
	return ErrCASExhausted
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
