package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by patrickmn/go-cache for TTL
// expiry, with a per-key mutex guarding Update so read-modify-write never
// races within a process. Grounded on the single-process map+mutex pattern
// in routers/memory_stats_store.go, generalized away from deployment stats
// to an arbitrary byte payload.
type MemoryStore struct {
	cache *gocache.Cache

	keyMu sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryStore creates a MemoryStore. The janitor goroutine that expires
// TTL'd entries is owned by go-cache and swept every minute.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, time.Minute),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	return b, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		s.cache.Set(key, value, gocache.NoExpiration)
		return nil
	}
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	current, found, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if next == nil {
		return s.Delete(ctx, key)
	}
	return s.Set(ctx, key, next, ttl)
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) lockFor(key string) *sync.Mutex {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
