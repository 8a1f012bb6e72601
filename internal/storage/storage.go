package storage

import (
	"errors"
	"maps"
	"sort"
	"sync"
)

var (
	// ErrInvalidKey indicates an attribute name was empty.
	ErrInvalidKey = errors.New("setting key must not be empty")
)

// Storage holds named host settings.
type Storage interface {
	Lookup(key string) (any, bool)
	Set(key string, value any) error
	Delete(key string) bool
	Snapshot() map[string]any
	Keys() []string
}

// MemoryStorage keeps settings in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryStorage initialises storage with a copy of initial.
func NewMemoryStorage(initial map[string]any) *MemoryStorage {
	values := make(map[string]any, len(initial))
	for key, value := range initial {
		if key == "" || value == nil {
			continue
		}
		values[key] = value
	}
	return &MemoryStorage{values: values}
}

// Lookup returns the value stored under key.
func (s *MemoryStorage) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok
}

// Set stores value under key.
func (s *MemoryStorage) Set(key string, value any) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	return nil
}

// Delete removes key and reports whether it was present.
func (s *MemoryStorage) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	return true
}

// Snapshot returns a defensive copy of every stored setting.
func (s *MemoryStorage) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.values)
}

// Keys returns the stored keys in sorted order.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.values))
	for key := range s.values {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
