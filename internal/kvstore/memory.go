package kvstore

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

func (s *MemoryStore) Has(ctx context.Context, key []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value []byte) error {
	return s.Write(ctx, []Op{{Key: key, Value: value}})
}

func (s *MemoryStore) Delete(ctx context.Context, key []byte) error {
	return s.Write(ctx, []Op{{Key: key, Delete: true}})
}

func (s *MemoryStore) Write(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if op.Delete {
			delete(s.data, string(op.Key))
			continue
		}
		s.data[string(op.Key)] = clone(op.Value)
	}
	return nil
}

// Len reports the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Snapshot copies the whole store.
func (s *MemoryStore) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = clone(v)
	}
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
