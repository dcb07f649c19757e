package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrSnapshotNotFound is returned by a Store when nothing is saved under a key.
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

// Store persists whole cart snapshots by key. Save overwrites.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

type namedStore interface {
	Name() string
}

func storeName(s Store) string {
	if n, ok := s.(namedStore); ok {
		return n.Name()
	}
	return "custom"
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.data[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, payload []byte) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.mu.Lock()
	m.data[key] = buf
	m.mu.Unlock()
	return nil
}
