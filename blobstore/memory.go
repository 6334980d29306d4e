package blobstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation, primarily for
// tests and embedders without persistence needs. Thread-safe.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[uint64][]byte
}

// NewMemoryStore creates a new in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[uint64][]byte),
	}
}

// Get returns the artifact bytes for token.
func (m *MemoryStore) Get(_ context.Context, token uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[token]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external mutation.
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Put stores the artifact bytes for token.
func (m *MemoryStore) Put(_ context.Context, token uint64, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[token] = copied
	return nil
}

// Delete removes the artifact for token.
func (m *MemoryStore) Delete(_ context.Context, token uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, token)
	return nil
}

// List returns all stored tokens.
func (m *MemoryStore) List(_ context.Context) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := make([]uint64, 0, len(m.blobs))
	for token := range m.blobs {
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// Len returns the number of stored artifacts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
