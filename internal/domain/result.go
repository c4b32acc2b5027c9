package domain

// TurnResult is what a turn invocation hands back to the caller. Failure
// is non-nil when a node error was recovered into an apology reply with
// the input state otherwise preserved; it stays nil for a turn that
// merely ended unresolved. Infrastructure failures (a checkpoint write
// that did not commit) surface as ordinary errors instead of a result.
type TurnResult struct {
	State       ConversationState
	ThreadID    string
	SessionID   string
	Version     int64
	Interrupted bool
	Failure     error
}

func (r *TurnResult) Reply() string {
	if r.State.FinalReply != nil {
		return *r.State.FinalReply
	}
	if r.State.DraftReply != nil {
		return *r.State.DraftReply
	}
	return ""
}
