package domain

import (
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ReplySource values record whether the outgoing reply was enriched or
// fell back to the unpolished draft.
const (
	ReplySourcePolished = "polished"
	ReplySourceDraft    = "draft"
)

type TurnRecord struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState is the persisted unit of work for one thread. Business
// fields are pointers so absent-until-set survives serialization; the
// engine never interprets their contents.
type ConversationState struct {
	ThreadID    string `json:"thread_id"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`

	Intent        *string `json:"intent,omitempty"`
	OrderID       *string `json:"order_id,omitempty"`
	PendingAction *string `json:"pending_action,omitempty"`
	DraftReply    *string `json:"draft_reply,omitempty"`
	FinalReply    *string `json:"final_reply,omitempty"`
	ReplySource   *string `json:"reply_source,omitempty"`

	AwaitingInput bool  `json:"awaiting_input"`
	Resolved      *bool `json:"resolved,omitempty"`

	TraceID   string       `json:"trace_id"`
	History   []TurnRecord `json:"history"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewConversationState(threadID, userID, sessionID string) ConversationState {
	now := time.Now().UTC()
	return ConversationState{
		ThreadID:  threadID,
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Node functions operate on clones so a failed
// node can never leak partial mutations back into the engine's state.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Intent = clonePtr(s.Intent)
	out.OrderID = clonePtr(s.OrderID)
	out.PendingAction = clonePtr(s.PendingAction)
	out.DraftReply = clonePtr(s.DraftReply)
	out.FinalReply = clonePtr(s.FinalReply)
	out.ReplySource = clonePtr(s.ReplySource)
	out.Resolved = clonePtr(s.Resolved)
	if s.History != nil {
		out.History = make([]TurnRecord, len(s.History))
		copy(out.History, s.History)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *ConversationState) AppendTurn(role, content string) {
	now := time.Now().UTC()
	s.History = append(s.History, TurnRecord{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

func (s ConversationState) IsResolved() bool {
	return s.Resolved != nil && *s.Resolved
}

// Transcript joins all turn contents for full-text indexing.
func (s ConversationState) Transcript() string {
	parts := make([]string, 0, len(s.History))
	for _, t := range s.History {
		parts = append(parts, t.Content)
	}
	return strings.Join(parts, " ")
}

func (s ConversationState) Validate() error {
	if s.ThreadID == "" {
		return Error{Type: ErrorTypeValidation, Message: "state has no thread id"}
	}
	if s.UserID == "" {
		return Error{Type: ErrorTypeValidation, Message: "state has no user id"}
	}
	if s.SessionID == "" {
		return Error{Type: ErrorTypeValidation, Message: "state has no session id"}
	}
	return nil
}

func StringPtr(v string) *string {
	return &v
}

func BoolPtr(v bool) *bool {
	return &v
}
