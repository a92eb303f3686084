package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. It backs development runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[namespace][key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (m *MemoryStore) Set(_ context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(namespace, key, value)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(namespace, key)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, namespace, key string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.values[namespace][key]
	next, err := fn(clone(current), ok)
	if err != nil {
		return err
	}
	if next == nil {
		m.deleteLocked(namespace, key)
		return nil
	}
	m.setLocked(namespace, key, next)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) setLocked(namespace, key string, value []byte) {
	ns, ok := m.values[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.values[namespace] = ns
	}
	ns[key] = clone(value)
}

func (m *MemoryStore) deleteLocked(namespace, key string) {
	ns, ok := m.values[namespace]
	if !ok {
		return
	}
	delete(ns, key)
	if len(ns) == 0 {
		delete(m.values, namespace)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
