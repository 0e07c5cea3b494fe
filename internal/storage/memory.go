package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// MemoryStore keeps sessions and archived narrative in process memory.
// Sessions are stored as JSON so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	chunks   map[string]string
}

// Ensure MemoryStore satisfies the store interfaces
var (
	_ interfaces.SessionStore  = (*MemoryStore)(nil)
	_ interfaces.ArchiveStore  = (*MemoryStore)(nil)
	_ interfaces.ArchivePurger = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		chunks:   make(map[string]string),
	}
}

// Save stores a copy of the session
func (m *MemoryStore) Save(ctx context.Context, session *types.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = data
	return nil
}

// Load returns a copy of the session
func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*types.GameSession, error) {
	m.mu.RLock()
	data, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, types.ErrSessionNotFound
	}

	var session types.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSessionCorrupt, err)
	}
	return &session, nil
}

// Delete removes a session
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Put archives narrative text
func (m *MemoryStore) Put(ctx context.Context, sessionID, tag, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[sessionID+"\x00"+tag] = text
	return nil
}

// Get returns archived narrative text
func (m *MemoryStore) Get(ctx context.Context, sessionID, tag string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.chunks[sessionID+"\x00"+tag]
	if !ok {
		return "", types.ErrArchiveNotFound
	}
	return text, nil
}

// Purge removes everything archived for a session
func (m *MemoryStore) Purge(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := sessionID + "\x00"
	for key := range m.chunks {
		if strings.HasPrefix(key, prefix) {
			delete(m.chunks, key)
		}
	}
	return nil
}
