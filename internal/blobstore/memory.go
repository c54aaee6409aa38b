package blobstore

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, k Key) ([]byte, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[k.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(b), nil
}

func (m *MemoryStore) Put(_ context.Context, k Key, data []byte) error {
	if err := k.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[k.String()] = slices.Clone(data)
	return nil
}

func (m *MemoryStore) List(_ context.Context, user, task, dir string) ([]string, error) {
	prefix := Key{User: user, Task: task}.String()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for key := range m.blobs {
		path, ok := strings.CutPrefix(key, prefix)
		if ok && childOf(path, dir) {
			out = append(out, path)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
