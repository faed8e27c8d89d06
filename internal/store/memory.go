package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps saves for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	name, err := NormalizeName(rec.Name)
	if err != nil {
		return err
	}
	rec.Name = name
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = rec
	return nil
}

func (s *MemoryStore) Load(_ context.Context, name string) (*Record, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[name]; !ok {
		return ErrNotFound
	}
	delete(s.records, name)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
