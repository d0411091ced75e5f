// Package cache provides the idempotency stores that guard payment
// collection against duplicate submissions.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
)

const cleanupInterval = 5 * time.Minute

type entry struct {
	paymentID string
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps idempotency keys in a process-local map.
// State is not shared between replicas; use the Redis store for
// multi-instance deployments.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore returns a store with a background sweeper that
// evicts expired keys. Call Close to stop the sweeper.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Record claims the key for paymentID. It returns false when a live entry
// already holds the key; an expired entry is overwritten.
func (s *InMemoryIdempotencyStore) Record(ctx context.Context, key, paymentID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && time.Now().Before(e.expiresAt) {
		return false, nil
	}

	s.entries[key] = entry{
		paymentID: paymentID,
		expiresAt: time.Now().Add(ttl),
	}
	return true, nil
}

// Lookup returns the payment recorded under key. Expired entries read as
// unknown even before the sweeper removes them.
func (s *InMemoryIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false, nil
	}
	return e.paymentID, true, nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size reports the entry count including not-yet-swept expired keys.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
