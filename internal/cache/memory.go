package cache

import (
	"context"
	"sync"
	"time"
)

type MemoryOption func(*MemoryStore)

func WithNowFunc(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// MemoryStore keeps entries in a mutex-guarded map. It is useful for a
// single run that looks the same coordinates up more than once, and for
// tests.
type MemoryStore struct {
	mu    sync.Mutex
	nowFn func() time.Time
	ttl   time.Duration
	items map[string]Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		nowFn: time.Now,
		ttl:   ttl,
		items: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok || expired(e.StoredAt, s.ttl, s.nowFn()) {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.StoredAt = s.nowFn().UTC()
	s.items[e.Key] = e
	return nil
}

func (s *MemoryStore) Prune(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl <= 0 {
		return 0, nil
	}
	now := s.nowFn()
	var n int64
	for k, e := range s.items {
		if expired(e.StoredAt, s.ttl, now) {
			delete(s.items, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func expired(storedAt time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && !now.Before(storedAt.Add(ttl))
}
