package store

import (
	"context"
	"errors"
	"sync"
)

var _ Database = (*MemoryDatabase)(nil)

// MemoryDatabase keeps the whole tree in process memory. Used for local
// development and tests; contents are lost on restart.
type MemoryDatabase struct {
	mutex sync.RWMutex
	root  any
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{}
}

func (m *MemoryDatabase) Get(_ context.Context, path string) (any, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return normalize(getAt(m.root, segments))
}

func (m *MemoryDatabase) Set(_ context.Context, path string, value any) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(value)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.root = setAt(m.root, segments, normalized)
	return nil
}

func (m *MemoryDatabase) Push(ctx context.Context, path string, value any) (string, error) {
	key, err := newPushKey()
	if err != nil {
		return "", err
	}
	if err := m.Set(ctx, JoinPath(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MemoryDatabase) Update(_ context.Context, path string, fields map[string]any) error {
	if len(fields) == 0 {
		return errors.New("update value must be a non-empty map")
	}
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.root, err = updateAt(m.root, segments, normalized.(map[string]any))
	return err
}

func (m *MemoryDatabase) Delete(_ context.Context, path string) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.root = setAt(m.root, segments, nil)
	return nil
}
