package cache

import (
	"context"
	"sync"
	"time"

	models "github.com/Laisky/logviewer/library/models/files"
)

type memoryEntry struct {
	roots     []models.RootDirectory
	expiresAt time.Time
}

// Memory is an in-process RootsCache.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory returns an empty in-process cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements RootsCache.
func (m *Memory) Get(_ context.Context, nodeID string) ([]models.RootDirectory, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[nodeID]
	m.mu.RUnlock()

	if !ok || !m.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return cloneRoots(entry.roots), true, nil
}

// Set implements RootsCache.
func (m *Memory) Set(_ context.Context, nodeID string, roots []models.RootDirectory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[nodeID] = memoryEntry{
		roots:     cloneRoots(roots),
		expiresAt: m.now().Add(m.ttl),
	}
	m.evictExpiredLocked()
	return nil
}

// Delete implements RootsCache.
func (m *Memory) Delete(_ context.Context, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, nodeID)
	return nil
}

func (m *Memory) evictExpiredLocked() {
	now := m.now()
	for id, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, id)
		}
	}
}

func cloneRoots(roots []models.RootDirectory) []models.RootDirectory {
	out := make([]models.RootDirectory, len(roots))
	copy(out, roots)
	return out
}
