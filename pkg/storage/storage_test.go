package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	sqliteKV, err := Open(BackendSQLite, filepath.Join(dir, "db", "history.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	fileKV, err := Open(BackendFile, filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	memKV, _ := Open(BackendMemory, "")

	all := map[string]KV{
		BackendSQLite: sqliteKV,
		BackendFile:   fileKV,
		BackendMemory: memKV,
	}
	t.Cleanup(func() {
		for _, kv := range all {
			kv.Close()
		}
	})
	return all
}

func TestKVContract(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Load(ctx, "ngram/bigrams"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := kv.Save(ctx, "ngram/bigrams", []byte("v1")); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := kv.Save(ctx, "ngram/bigrams", []byte("v2")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := kv.Load(ctx, "ngram/bigrams")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !bytes.Equal(got, []byte("v2")) {
				t.Errorf("expected v2, got %q", got)
			}

			if err := kv.Delete(ctx, "ngram/bigrams"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := kv.Delete(ctx, "ngram/bigrams"); err != nil {
				t.Errorf("deleting a missing key should succeed, got %v", err)
			}
			if _, err := kv.Load(ctx, "ngram/bigrams"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	kv, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := kv.Save(ctx, "ngram/trigrams", []byte{0x81, 0xa1, 0x76, 0x01}); err != nil {
		t.Fatalf("save: %v", err)
	}
	kv.Close()

	reopened, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Load(ctx, "ngram/trigrams")
	if err != nil || !bytes.Equal(got, []byte{0x81, 0xa1, 0x76, 0x01}) {
		t.Errorf("expected blob to survive reopen, got %x (%v)", got, err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("etcd", "x"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestMemoryKVCopiesBlobs(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	data := []byte("abc")
	kv.Save(ctx, "k", data)
	data[0] = 'x'

	got, _ := kv.Load(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored blob aliased caller slice: %q", got)
	}
}
