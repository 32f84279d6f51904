// Package storage persists the session token across process restarts. The
// token is an opaque string written to a client-local file; nothing else
// is stored, and nothing in here interprets the token's contents.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// FileTokenStore keeps the bearer token in a single file, created with
// owner-only permissions.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by the given file path. When
// path is empty, the token lives under the user config directory
// ("vyachik-task-tracker/token").
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
		path = filepath.Join(configDir, "vyachik-task-tracker", "token")
	}
	return &FileTokenStore{path: path}, nil
}

// Load returns the persisted token, or "" when none has been saved. A
// missing file is not an error.
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token, creating parent directories as needed.
func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	log.Debug().Str("path", s.path).Msg("Token persisted")
	return nil
}

// Clear removes the persisted token. Clearing a never-written store is a
// no-op.
func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
