package ports

import (
	"context"

	"github.com/imniteen/loom/internal/domain"
)

// TurnOutcome reports how a turn ended. NextNode is set when the turn
// halted before an interrupt node; Version is the last committed
// checkpoint version of the turn.
type TurnOutcome struct {
	Interrupted bool
	NextNode    string
	Steps       int
	Version     int64
}

// TurnEngine walks the graph for one turn. resumeNode is empty for a
// fresh turn or names the interrupted node recorded by the last
// checkpoint. The returned state is the final checkpointed state.
type TurnEngine interface {
	ExecuteTurn(ctx context.Context, state domain.ConversationState, resumeNode string) (domain.ConversationState, TurnOutcome, error)
}
