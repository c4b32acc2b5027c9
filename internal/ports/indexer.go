package ports

import (
	"context"

	"github.com/imniteen/loom/internal/domain"
)

// Indexer forwards completed turns to the secondary index. Publish only
// schedules the write and never blocks or fails the caller; Close stops
// intake and drains what it can before ctx expires.
type Indexer interface {
	Publish(state domain.ConversationState)
	Close(ctx context.Context) error
}
