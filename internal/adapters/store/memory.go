package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/imniteen/loom/internal/domain"
)

// MemoryStore is the non-durable fallback store. Values are copied on the
// way in and out so callers never alias stored bytes.
type MemoryStore struct {
	logger *slog.Logger

	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger.With("component", "state-store", "mode", "memory"),
		data:   make(map[string][]byte),
	}
}

func (s *MemoryStore) Setup(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrClosed
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, domain.ErrClosed
	}

	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
