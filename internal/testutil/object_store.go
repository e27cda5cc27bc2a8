package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory storage.ObjectStore for tests.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	PutErr  error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (s *MemoryStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.Objects[key] = append([]byte(nil), body...)
	s.Types[key] = contentType
	return nil
}

func (s *MemoryStore) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.Objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.Objects, k)
			delete(s.Types, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) URL(key string) string {
	return "https://media.test/" + key
}

// Keys lists stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.Objects))
	for k := range s.Objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
