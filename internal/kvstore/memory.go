package kvstore

import (
	"context"
	"sync"
)

// Memory is the in-memory store used in tests and local development.
type Memory struct {
	mu       sync.Mutex
	data     map[string][]byte
	counters map[string]int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string][]byte),
		counters: make(map[string]int64),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *Memory) Rename(_ context.Context, oldKey, newKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[oldKey]
	if !ok {
		return ErrNotFound
	}
	delete(m.data, oldKey)
	m.data[newKey] = value
	return nil
}

func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, found := m.data[key]
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	stored := make([]byte, len(next))
	copy(stored, next)
	m.data[key] = stored
	return nil
}

func (m *Memory) NextID(_ context.Context, counter string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[counter]++
	return m.counters[counter], nil
}

func (m *Memory) Close() error { return nil }
