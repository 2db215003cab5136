package credstore

import (
	"context"
	"sync"
)

// Memory is an in-memory credential store. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Put stores or replaces the hash for userID.
func (m *Memory) Put(userID, passwordHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = Record{UserID: userID, PasswordHash: passwordHash}
}

// Remove deletes userID.
func (m *Memory) Remove(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
}

// FindByUserID returns the credential for userID, or ErrNotFound.
func (m *Memory) FindByUserID(ctx context.Context, userID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}
