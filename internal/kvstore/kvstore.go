// Package kvstore persists small string values by key, the way a browser's
// localStorage does. Two backends exist: FileStore keeps one file per key and
// SQLiteStore keeps a single table.
package kvstore

import (
	"errors"
	"fmt"
)

// Storage is a string key/value store. Get reports ok=false for a missing key.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var ErrEmptyKey = errors.New("kvstore: empty key")

// Open returns the backend named by backend rooted at path. For the file
// backend path is a directory, for sqlite it is the database file.
func Open(backend, path string) (Storage, error) {
	switch backend {
	case "", BackendFile:
		s, err := NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", backend)
	}
}
