package storage

import (
	"context"
	"sync"
)

// MemoryKV keeps blobs in memory. Nothing survives the process.
type MemoryKV struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{blobs: make(map[string][]byte)}
}

func (kv *MemoryKV) Load(_ context.Context, key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	data, ok := kv.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (kv *MemoryKV) Save(_ context.Context, key string, data []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (kv *MemoryKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.blobs, key)
	return nil
}

func (kv *MemoryKV) Close() error {
	return nil
}

// Keys returns the stored keys, mostly for tests.
func (kv *MemoryKV) Keys() []string {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	keys := make([]string, 0, len(kv.blobs))
	for k := range kv.blobs {
		keys = append(keys, k)
	}
	return keys
}
