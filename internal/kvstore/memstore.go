package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store used by package tests across the
// repository so they never need a live Redis instance.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemStore) MGet(_ context.Context, keys []string) ([][]byte, []bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([][]byte, len(keys))
	present := make([]bool, len(keys))
	for i, k := range keys {
		if v, ok := s.data[k]; ok {
			cp := make([]byte, len(v))
			copy(cp, v)
			values[i] = cp
			present[i] = true
		}
	}
	return values, present, nil
}

func (s *MemStore) Scan(_ context.Context, cursor uint64, prefix string, count int64) (uint64, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			all = append(all, k)
		}
	}
	sort.Strings(all)

	start := int(cursor)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(count)
	if count <= 0 || end > len(all) {
		end = len(all)
	}

	next := uint64(0)
	if end < len(all) {
		next = uint64(end)
	}
	return next, all[start:end], nil
}
