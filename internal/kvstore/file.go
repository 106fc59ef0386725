package kvstore

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// FileStore keeps each key in its own file under a directory. Writes go
// through a temp file and rename, so a reader never sees a partial value.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("kvstore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("kvstore: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileStore) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: read %q: %w", key, err)
	}
	return string(data), true, nil
}

func (s *FileStore) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	path := s.path(key)
	if err := atomic.WriteFile(path, strings.NewReader(value)); err != nil {
		return fmt.Errorf("kvstore: write %q: %w", key, err)
	}
	// atomic.WriteFile keeps the temp file's mode for new files.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("kvstore: chmod %q: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
