package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// FileSessionStore persists one JSON document per session
type FileSessionStore struct {
	dir       string
	stateLock sync.RWMutex
}

// Ensure FileSessionStore satisfies the interfaces.SessionStore interface
var _ interfaces.SessionStore = (*FileSessionStore)(nil)

// NewFileSessionStore creates a session store rooted at dir
func NewFileSessionStore(dir string) *FileSessionStore {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		// If we can't create the directory, we'll just use the default path
		dir = "./data/sessions"
	}

	return &FileSessionStore{
		dir: dir,
	}
}

func (fs *FileSessionStore) path(sessionID string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_").Replace(sessionID)
	return filepath.Join(fs.dir, name+".json")
}

// Save writes the session to disk
func (fs *FileSessionStore) Save(ctx context.Context, session *types.GameSession) error {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(fs.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Marshal session to JSON
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to file
	target := fs.path(session.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

// Load reads a session from disk
func (fs *FileSessionStore) Load(ctx context.Context, sessionID string) (*types.GameSession, error) {
	fs.stateLock.RLock()
	defer fs.stateLock.RUnlock()

	// Read file
	data, err := os.ReadFile(fs.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, types.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	// Unmarshal JSON
	var session types.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSessionCorrupt, err)
	}

	return &session, nil
}

// Delete removes a session file; deleting a missing session is not an error
func (fs *FileSessionStore) Delete(ctx context.Context, sessionID string) error {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()

	if err := os.Remove(fs.path(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
