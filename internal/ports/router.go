package ports

import "context"

// ThreadResolution is the outcome of mapping (user, session) to a thread.
type ThreadResolution struct {
	ThreadID  string
	SessionID string
	IsNew     bool
}

// SessionRouter composes deterministic thread ids and decides new-vs-resume.
// An empty sessionID requests a fresh session.
type SessionRouter interface {
	ResolveThread(ctx context.Context, userID, sessionID string) (ThreadResolution, error)
}
