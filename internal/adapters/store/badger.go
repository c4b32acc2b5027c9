package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/imniteen/loom/internal/domain"
)

// BadgerStore is the durable primary store. Writes are committed before
// Put returns; SyncWrites controls whether commits also fsync.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewBadgerStore(dir string, syncWrites bool, logger *slog.Logger) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeStorage,
			Message: "failed to create store directory",
			Details: map[string]interface{}{"dir": dir, "error": err.Error()},
		}
	}

	log := logger.With("component", "state-store")

	opts := badger.DefaultOptions(dir)
	opts.SyncWrites = syncWrites
	opts.Logger = &badgerLogger{logger: log}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeStorage,
			Message: "failed to open state database",
			Details: map[string]interface{}{"dir": dir, "error": err.Error()},
		}
	}

	return &BadgerStore{db: db, logger: log}, nil
}

func (s *BadgerStore) Setup(ctx context.Context) error {
	return s.guard()
}

func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.guard(); err != nil {
		return nil, false, err
	}

	var value []byte
	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		exists = true
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, domain.NewStorageError("get", key, err)
	}

	return value, exists, nil
}

func (s *BadgerStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.guard(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return domain.NewStorageError("put", key, err)
	}

	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := s.guard(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return domain.NewStorageError("delete", key, err)
	}

	return nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return domain.NewStorageError("close", "", err)
	}
	return nil
}

func (s *BadgerStore) guard() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrClosed
	}
	return nil
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(f, v...))
}

func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(f, v...))
}

func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(f, v...))
}

func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(f, v...))
}
