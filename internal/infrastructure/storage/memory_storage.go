package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryObjectStorage keeps objects in a map. Archive tests use it in place
// of S3.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{objects: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (m *MemoryObjectStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return ErrStorageKeyRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

// Exists reports whether key is present.
func (m *MemoryObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Get returns the object under key
func (m *MemoryObjectStorage) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

// Keys returns all keys in sorted order
func (m *MemoryObjectStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
