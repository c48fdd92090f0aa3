// Package storage provides the durable key-value capability used to persist
// the association tables across restarts.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when a key has never been saved.
var ErrNotFound = errors.New("key not found")

// KV is a minimal blob store.
type KV interface {
	// Load returns the blob stored under key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores data under key, replacing any previous blob.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Open creates the backend named by kind rooted at path.
// path is a database file for sqlite and a directory for file.
func Open(kind, path string) (KV, error) {
	switch kind {
	case BackendSQLite, "":
		return NewSQLiteKV(path)
	case BackendFile:
		return NewFileKV(path)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
