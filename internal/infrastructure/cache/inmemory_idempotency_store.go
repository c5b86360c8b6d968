package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerbook/backend/internal/domain/shared"
)

// sweepInterval bounds how often MarkProcessed scans for expired keys
const sweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps idempotency keys in process memory. Keys are
// not shared between instances; use the Redis store behind a load balancer.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	expiries  map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{expiries: make(map[string]time.Time), now: time.Now}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// MarkProcessed claims key for ttl. Only the first caller within ttl gets true.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}
	if exp, ok := s.expiries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiries[key] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expiries[key]
	return ok && s.now().Before(exp), nil
}

func (s *InMemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiries, key)
	return nil
}

// Close is a no-op; the store holds no background resources
func (s *InMemoryIdempotencyStore) Close() error { return nil }

// Size counts stored keys, expired ones not yet swept included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiries)
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

func (s *InMemoryIdempotencyStore) sweepLocked(now time.Time) {
	for key, exp := range s.expiries {
		if !now.Before(exp) {
			delete(s.expiries, key)
		}
	}
	s.lastSweep = now
}
