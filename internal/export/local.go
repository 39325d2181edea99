package export

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// LocalConfig holds file backend configuration.
type LocalConfig struct {
	// Dir is the directory holding one file per export key
	Dir string
}

// LocalStore implements Store using one file per key in a local directory.
// This is suitable for single-instance deployments.
type LocalStore struct {
	mu  sync.RWMutex
	dir string
}

// NewLocalStore creates a new file-based store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Load reads the export file for key.
func (s *LocalStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No export yet, not an error
		}
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	return data, nil
}

// Save writes the export file for key.
func (s *LocalStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	// Write atomically using temp file + rename
	target := s.path(key)
	tmpFile := target + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tmpFile, target); err != nil {
		os.Remove(tmpFile) // Clean up temp file
		return fmt.Errorf("failed to rename export file: %w", err)
	}

	return nil
}

// Delete removes the export file for key.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete export file: %w", err)
	}
	return nil
}

// Close is a no-op for the local store.
func (s *LocalStore) Close() error {
	return nil
}

// path maps key to a single file name inside dir.
func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".export")
}
