package equivalence

import (
	"context"
	"sync"
)

// Store loads and persists a Cache.
//
// Load never fails fatally: a missing store yields an empty cache and nil,
// a corrupt one yields an empty cache together with the parse error so the
// caller can log the reset.
type Store interface {
	Load(ctx context.Context) (Cache, error)
	// Save overwrites the persisted cache. Last writer wins.
	Save(ctx context.Context, c Cache) error
	// Upsert merges entries into the persisted cache as one
	// read-modify-write and returns the merged result.
	Upsert(ctx context.Context, entries Cache) (Cache, error)
	// Location describes where the cache lives, for display.
	Location() string
}

// Clearer is implemented by stores that can drop everything at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Forget removes ids from the persisted cache and returns the ones that
// were present. Nothing is written when none were.
func Forget(ctx context.Context, s Store, ids ...string) ([]string, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, id := range ids {
		if c.Has(id) {
			delete(c, id)
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, s.Save(ctx, c)
}

// MemoryStore keeps the cache in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	cache Cache
	saves int
}

// NewMemoryStore returns a store seeded with a copy of initial.
func NewMemoryStore(initial Cache) *MemoryStore {
	if initial == nil {
		initial = Cache{}
	}
	return &MemoryStore{cache: initial.Clone()}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, c Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = c.Clone()
	s.saves++
	return nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, entries Cache) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Merge(entries)
	s.saves++
	return s.cache.Clone(), nil
}

// Location implements Store.
func (s *MemoryStore) Location() string {
	return "memory"
}

// Clear implements Clearer.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = Cache{}
	return nil
}

// Saves returns how many times the cache was written.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Clearer = (*MemoryStore)(nil)
	_ Clearer = (*FileStore)(nil)
	_ Clearer = (*RedisStore)(nil)
)
