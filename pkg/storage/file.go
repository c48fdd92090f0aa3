package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bastiangx/nextword/internal/utils"
)

// FileKV keeps one file per key inside a directory. Writes go through a
// temporary file and a rename so a crash leaves the previous blob intact.
type FileKV struct {
	dir string
}

// NewFileKV creates the directory if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("file: empty directory")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

func (kv *FileKV) path(key string) string {
	return filepath.Join(kv.dir, strings.ReplaceAll(key, "/", "_")+".bin")
}

func (kv *FileKV) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(kv.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return data, nil
}

func (kv *FileKV) Save(_ context.Context, key string, data []byte) error {
	target := kv.path(key)
	tmp, err := os.CreateTemp(kv.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (kv *FileKV) Delete(_ context.Context, key string) error {
	err := os.Remove(kv.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (kv *FileKV) Close() error {
	return nil
}
