package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu          sync.Mutex
	keys        map[string]struct{}
	lastUpdated time.Time
	appends     int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]struct{})}
}

// Load returns a snapshot of the stored keys
func (m *MemoryStore) Load(_ context.Context) ([]string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.keys))
	for k := range m.keys {
		keys = append(keys, k)
	}
	return keys, m.lastUpdated, nil
}

// Append adds keys to the set
func (m *MemoryStore) Append(_ context.Context, keys []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		m.keys[k] = struct{}{}
	}
	m.lastUpdated = at
	m.appends++
	return nil
}

// Reset empties the set
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys = make(map[string]struct{})
	m.lastUpdated = time.Now()
	return nil
}

// Appends returns how many times Append was called
func (m *MemoryStore) Appends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appends
}
