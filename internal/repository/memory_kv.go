package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryKV keeps values in process memory. Used for development and tests.
type MemoryKV struct {
	mu       sync.RWMutex
	data     map[string][]byte
	maxValue int
}

func NewMemoryKV(maxValueBytes int) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), maxValue: maxValueBytes}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, notFound(key)
	}
	return slices.Clone(v), nil
}

func (m *MemoryKV) Put(ctx context.Context, key string, value []byte) error {
	if err := checkSize(key, value, m.maxValue); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
