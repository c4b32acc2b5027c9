package store

import (
	"log/slog"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

// Open builds the primary store from config. An explicitly requested
// in-memory store is not degraded; falling back to memory because badger
// could not open is, and is reported through the second return so callers
// can surface the non-durable mode instead of silently pretending.
func Open(cfg *domain.Config, logger *slog.Logger) (ports.StateStore, bool, error) {
	if cfg.Store.InMemory {
		return NewMemoryStore(logger), false, nil
	}

	st, err := NewBadgerStore(cfg.StoreDir(), cfg.Store.SyncWrites, logger)
	if err == nil {
		return st, false, nil
	}

	if !cfg.Store.FallbackToMemory {
		return nil, false, err
	}

	logger.Warn("primary store unavailable, continuing with non-durable in-memory store",
		"dir", cfg.StoreDir(),
		"error", err)

	return NewMemoryStore(logger), true, nil
}
