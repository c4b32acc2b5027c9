package domain

import "time"

// SearchDocument is the denormalized projection of a thread for the
// secondary index. It is rebuilt from scratch on every publish and is
// never the source of truth.
type SearchDocument struct {
	ThreadID      string       `json:"thread_id"`
	SessionID     string       `json:"session_id"`
	UserID        string       `json:"user_id"`
	Intent        string       `json:"intent,omitempty"`
	OrderID       string       `json:"order_id,omitempty"`
	Resolved      bool         `json:"resolved"`
	AwaitingInput bool         `json:"awaiting_input"`
	Transcript    string       `json:"transcript"`
	History       []TurnRecord `json:"history"`
	TraceID       string       `json:"trace_id,omitempty"`
	IndexedAt     time.Time    `json:"indexed_at"`
}

func NewSearchDocument(state ConversationState) SearchDocument {
	doc := SearchDocument{
		ThreadID:      state.ThreadID,
		SessionID:     state.SessionID,
		UserID:        state.UserID,
		Resolved:      state.IsResolved(),
		AwaitingInput: state.AwaitingInput,
		Transcript:    state.Transcript(),
		TraceID:       state.TraceID,
		IndexedAt:     time.Now().UTC(),
	}
	if state.Intent != nil {
		doc.Intent = *state.Intent
	}
	if state.OrderID != nil {
		doc.OrderID = *state.OrderID
	}
	if len(state.History) > 0 {
		doc.History = make([]TurnRecord, len(state.History))
		copy(doc.History, state.History)
	}
	return doc
}

type UserStatistics struct {
	TotalConversations int64            `json:"total_conversations"`
	ResolvedCount      int64            `json:"resolved_count"`
	IntentCounts       map[string]int64 `json:"intent_counts"`
}
