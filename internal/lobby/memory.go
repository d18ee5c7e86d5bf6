package lobby

import (
	"context"
	"strings"
	"sync"
)

// MemoryIndex keeps open sessions in process memory. Used when no Redis
// URL is configured.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]Entry)}
}

func (m *MemoryIndex) Open(_ context.Context, e Entry) error {
	if strings.TrimSpace(e.SessionID) == "" {
		return ErrInvalidArgs
	}
	m.mu.Lock()
	m.entries[e.SessionID] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Close(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sortEntries(out)
	return out, nil
}
