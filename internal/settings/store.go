package settings

import (
	"fmt"
	"sync"
)

// Store is a string key-value persistence capability
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Manager reads and writes the settings blob through a Store
type Manager struct {
	store Store
	key   string
}

// NewManager creates a Manager persisting under StorageKey
func NewManager(store Store) *Manager {
	return &Manager{store: store, key: StorageKey}
}

// Load returns the defaults overlaid with the persisted record. When the stored blob
// cannot be read or decoded the defaults are returned together with the error.
func (m *Manager) Load() (Settings, error) {
	s := Defaults()

	raw, ok, err := m.store.Get(m.key)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if !ok || raw == "" {
		return s, nil
	}

	if err := s.UnmarshalJSON([]byte(raw)); err != nil {
		return Defaults(), fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// Save overwrites the persisted record wholesale
func (m *Manager) Save(s Settings) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := m.store.Set(m.key, string(data)); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// MemoryStore is a Store held in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get implements Store
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set implements Store
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
