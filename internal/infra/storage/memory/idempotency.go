package memory

import (
	"context"
	"sync"
	"time"

	"circlo/internal/app/middleware"
)

// IdempotencyStore is the in-process result cache. A zero TTL keeps results
// forever.
type IdempotencyStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	results map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, results: map[string]middleware.IdempotencyRecord{}}
}

func (s *IdempotencyStore) expired(rec middleware.IdempotencyRecord) bool {
	return s.ttl > 0 && s.now().Sub(rec.OccurredAt) > s.ttl
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.results[key]
	if !ok || s.expired(rec) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = s.now()
	}
	s.mu.Lock()
	s.results[rec.Key] = rec
	s.mu.Unlock()
	return nil
}

// Purge drops expired results and reports how many went.
func (s *IdempotencyStore) Purge(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.results {
		if s.expired(rec) {
			delete(s.results, key)
			n++
		}
	}
	return n, nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
