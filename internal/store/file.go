package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// FileStore keeps the refresh token in a 0600 JSON file.
type FileStore struct {
	path   string
	logger *log.Logger
	mu     sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the parent directory with 0700 permissions.
func NewFileStore(path string, logger *log.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create token directory")
	}
	return &FileStore{path: path, logger: logger.With("component", "file_store")}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	data, err := encodeRecord(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Readers only ever see a complete record.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write token file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to replace token file")
	}
	return nil
}

func (s *FileStore) Load() (string, bool, error) {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "failed to read token file")
	}

	token, ok := decodeRecord(data)
	if !ok {
		s.logger.Warn("token file is corrupted, removing it", "path", s.path)
		_ = s.Clear()
		return "", false, nil
	}
	return token, true, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "failed to delete token file")
	}
	return nil
}
