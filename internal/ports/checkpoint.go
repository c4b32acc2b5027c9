package ports

import (
	"context"

	"github.com/imniteen/loom/internal/domain"
)

// CheckpointManager persists and restores thread checkpoints. Save is a
// full-state overwrite acknowledged only after the store committed it,
// returning the new version. Load reports absence through the bool.
type CheckpointManager interface {
	Load(ctx context.Context, threadID string) (*domain.Checkpoint, bool, error)
	Save(ctx context.Context, threadID string, state domain.ConversationState, nextNode string) (int64, error)
}
