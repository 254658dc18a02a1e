package session

import (
	"context"
	"sync"
)

// Store is a key-value abstraction over the session and profile registries so
// the backing can be swapped between memory, Redis or a real persistence
// layer, and mocked in tests.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// GetOrSet stores value under key unless the key already holds one, and
	// returns the winning value. loaded is true when an existing value won.
	GetOrSet(ctx context.Context, key, value string) (winner string, loaded bool, err error)
	Has(ctx context.Context, key string) (bool, error)
}

// MemoryStore is a process-local Store. The webhook loop serializes writers
// in practice but the map is guarded anyway so tests can hammer it.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) GetOrSet(_ context.Context, key, value string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.data[key]; ok {
		return existing, true, nil
	}
	s.data[key] = value
	return value, false, nil
}

func (s *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

var _ Store = (*MemoryStore)(nil)
