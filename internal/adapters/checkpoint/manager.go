package checkpoint

import (
	"context"
	"log/slog"
	"time"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
	"github.com/imniteen/loom/internal/xjson"
)

// Manager persists full-state checkpoints keyed by thread id, one record
// per thread, replaced on every save. The version counter is
// read-modify-write; callers hold the thread lock for the turn, so two
// saves for one thread never race.
type Manager struct {
	store  ports.StateStore
	logger *slog.Logger
}

func NewManager(store ports.StateStore, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With("component", "checkpoint"),
	}
}

func (m *Manager) Load(ctx context.Context, threadID string) (*domain.Checkpoint, bool, error) {
	key := domain.CheckpointKey(threadID)

	value, exists, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	var cp domain.Checkpoint
	if err := xjson.Unmarshal(value, &cp); err != nil {
		return nil, false, domain.NewStorageError("decode", key, err)
	}

	return &cp, true, nil
}

// Save overwrites the thread's checkpoint with the complete state and
// returns the committed version. It does not return until the store
// acknowledged the write.
func (m *Manager) Save(ctx context.Context, threadID string, state domain.ConversationState, nextNode string) (int64, error) {
	key := domain.CheckpointKey(threadID)

	prior, exists, err := m.Load(ctx, threadID)
	if err != nil {
		return 0, err
	}

	version := int64(1)
	if exists {
		version = prior.Version + 1
	}

	cp := domain.Checkpoint{
		ThreadID: threadID,
		Version:  version,
		State:    state,
		NextNode: nextNode,
		SavedAt:  time.Now().UTC(),
	}

	value, err := xjson.Marshal(cp)
	if err != nil {
		return 0, domain.NewStorageError("encode", key, err)
	}

	if err := m.store.Put(ctx, key, value); err != nil {
		return 0, err
	}

	m.logger.Debug("checkpoint saved",
		"thread_id", threadID,
		"version", version,
		"next_node", nextNode)

	return version, nil
}
