// Package settings persists per-widget state between sessions.
//
// A Store is a flat key/value space; widgets keep one JSON document under
// their widget id. The in-memory store backs tests and ephemeral sessions,
// and package settings/sqlite provides the on-disk implementation.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyKey is returned when a caller passes an empty key.
var ErrEmptyKey = errors.New("settings: empty key")

// Store is the persistence interface consumed by widgets.
type Store interface {
	// Get returns the value stored under key. ok is false when the key has
	// never been written.
	Get(key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Flush makes every prior Set durable.
	Flush() error
}

// LoadJSON decodes the document under key into target. A missing key leaves
// target untouched and returns false. Fields absent from the stored document
// keep whatever value target already holds, so callers pre-fill defaults.
func LoadJSON(s Store, key string, target any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes value under key and flushes the store.
func SaveJSON(s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := s.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", key, err)
	}
	return nil
}

// MemoryStore is a Store held entirely in memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	flushes int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = v
	return nil
}

// Flush implements Store. It only counts calls.
func (m *MemoryStore) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// Flushes returns how many times Flush has been called.
func (m *MemoryStore) Flushes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}
