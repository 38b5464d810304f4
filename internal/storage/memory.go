package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryProvider keeps entries in process memory. It backs tests and
// single-process development runs.
type MemoryProvider struct {
	mu      sync.RWMutex
	clients map[string]map[string]string
}

// NewMemoryProvider constructs an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{clients: make(map[string]map[string]string)}
}

// Client returns the store for client id.
func (p *MemoryProvider) Client(id string) Store {
	return &memoryStore{provider: p, id: id}
}

// EachClient visits clients in id order.
func (p *MemoryProvider) EachClient(ctx context.Context, fn func(id string) error) error {
	p.mu.RLock()
	ids := make([]string, 0, len(p.clients))
	for id, entries := range p.clients {
		if len(entries) > 0 {
			ids = append(ids, id)
		}
	}
	p.mu.RUnlock()
	sort.Strings(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

type memoryStore struct {
	provider *MemoryProvider
	id       string
}

func (s *memoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()
	value, ok := s.provider.clients[s.id][key]
	return fromWire(value, ok), nil
}

func (s *memoryStore) GetMany(_ context.Context, keys ...string) (map[string]Entry, error) {
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()
	out := make(map[string]Entry, len(keys))
	entries := s.provider.clients[s.id]
	for _, key := range keys {
		value, ok := entries[key]
		out[key] = fromWire(value, ok)
	}
	return out, nil
}

func (s *memoryStore) Put(ctx context.Context, key string, entry Entry) error {
	return s.PutMany(ctx, map[string]Entry{key: entry})
}

func (s *memoryStore) PutMany(_ context.Context, entries map[string]Entry) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	stored := s.provider.clients[s.id]
	if stored == nil {
		stored = make(map[string]string)
		s.provider.clients[s.id] = stored
	}
	for key, entry := range entries {
		if value, ok := entry.wire(); ok {
			stored[key] = value
		} else {
			delete(stored, key)
		}
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	for _, key := range keys {
		delete(s.provider.clients[s.id], key)
	}
	return nil
}

func (s *memoryStore) Keys(_ context.Context) ([]string, error) {
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()
	keys := make([]string, 0, len(s.provider.clients[s.id]))
	for key := range s.provider.clients[s.id] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ Provider = (*MemoryProvider)(nil)
