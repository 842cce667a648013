// Package kvstore holds the console's small persisted state: the last used
// test-data bundle id and the wizard configuration.
//
// Values are advisory. The orchestrator stays authoritative for anything a
// value refers to, and concurrent writers resolve as last write wins.
package kvstore

import (
	"errors"
	"sort"
	"sync"
)

// Keys used by the console.
const (
	KeyLastTestdataID = "testdata.last_id"
	KeyWizardConfig   = "wizard.config"
)

// ErrEmptyKey is returned when a caller passes a blank key.
var ErrEmptyKey = errors.New("kvstore: empty key")

// Store is a string key-value cell store.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStore keeps values in process memory. The zero value is ready to use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore returns a MemoryStore seeded with a copy of seed.
func NewMemoryStore(seed map[string]string) *MemoryStore {
	m := &MemoryStore{data: make(map[string]string, len(seed))}
	for k, v := range seed {
		m.data[k] = v
	}
	return m
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
