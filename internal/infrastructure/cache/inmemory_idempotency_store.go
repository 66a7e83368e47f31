package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryIdempotencyStore keeps processed keys in process memory.
// Suitable for tests and single-instance deployments without redis.
type InMemoryIdempotencyStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // key -> expiry
	done    chan struct{}
}

// NewInMemoryIdempotencyStore creates a store with a background sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// MarkProcessed marks a key as processed. Returns false if the key is
// already present and not expired.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.entries[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	s.entries[key] = time.Now().Add(ttl)
	return true, nil
}

// IsProcessed reports whether a key has been processed and not yet expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.entries[key]
	return ok && time.Now().Before(expiry), nil
}

// Close stops the background sweeper
func (s *InMemoryIdempotencyStore) Close() error {
	close(s.done)
	return nil
}

func (s *InMemoryIdempotencyStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, expiry := range s.entries {
				if now.After(expiry) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
