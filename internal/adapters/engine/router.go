package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

// SessionRouter maps (user, session) pairs to deterministic thread ids
// and reports new-vs-resume from checkpoint presence. The same pair
// always lands on the same thread; an empty session id mints a fresh one.
type SessionRouter struct {
	checkpoints ports.CheckpointManager
	logger      *slog.Logger
}

func NewSessionRouter(checkpoints ports.CheckpointManager, logger *slog.Logger) *SessionRouter {
	return &SessionRouter{
		checkpoints: checkpoints,
		logger:      logger.With("component", "session-router"),
	}
}

func (r *SessionRouter) ResolveThread(ctx context.Context, userID, sessionID string) (ports.ThreadResolution, error) {
	if userID == "" {
		return ports.ThreadResolution{}, domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "user id is required",
		}
	}
	if strings.Contains(userID, domain.ThreadIDSeparator) {
		return ports.ThreadResolution{}, domain.Error{
			Type:    domain.ErrorTypeValidation,
			Message: "user id cannot contain the thread id separator",
			Details: map[string]interface{}{"user_id": userID},
		}
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	threadID := domain.ComposeThreadID(userID, sessionID)

	_, exists, err := r.checkpoints.Load(ctx, threadID)
	if err != nil {
		return ports.ThreadResolution{}, err
	}

	r.logger.Debug("thread resolved",
		"thread_id", threadID,
		"user_id", userID,
		"is_new", !exists)

	return ports.ThreadResolution{
		ThreadID:  threadID,
		SessionID: sessionID,
		IsNew:     !exists,
	}, nil
}
