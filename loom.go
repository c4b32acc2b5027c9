// Package loom provides a durable conversational workflow engine for Go
// applications.
//
// Loom executes agent workflows as graphs of nodes over a shared
// conversation state, checkpointing the state after every node so a
// thread can pause, resume, and survive process restarts. It provides:
//   - Turn-based execution with per-thread serialization
//   - Durable checkpoints in an embedded store
//   - Human-in-the-loop interrupts with resume semantics
//   - Best-effort full-text search over finished conversations
//
// Basic usage:
//
//	manager, err := loom.New(ctx, loom.DefaultConfig().WithDataDir("./data"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
//	result, err := manager.RunTurn(ctx, "customer-123", "", "What's your return policy?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Reply())
//
//	if result.Interrupted {
//	    // A human reviews the thread, then the operator's message
//	    // resumes it on the same session.
//	    result, err = manager.RunTurn(ctx, "customer-123", result.SessionID, "Approved: issue the refund")
//	}
package loom

import (
	"context"

	"github.com/imniteen/loom/internal/agent"
	"github.com/imniteen/loom/internal/core"
	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

// Manager runs conversation turns against durable workflow state. It is
// safe for concurrent use; turns on the same thread are serialized.
type Manager = core.Manager

// TurnResult is the outcome of a single conversation turn.
type TurnResult = domain.TurnResult

// ConversationState is the full state of one conversation thread.
type ConversationState = domain.ConversationState

// TurnRecord is one utterance in a conversation history.
type TurnRecord = domain.TurnRecord

// SearchDocument is the indexed projection of a conversation.
type SearchDocument = domain.SearchDocument

// UserStatistics aggregates indexed conversations for one user.
type UserStatistics = domain.UserStatistics

// SearchQuery filters indexed conversations. Text matches the transcript;
// the remaining fields narrow by exact value.
type SearchQuery = ports.SearchQuery

// GraphSpec declares a workflow graph: nodes, edges, conditional routers
// and the nodes to pause before.
type GraphSpec = domain.GraphSpec

// NodeSpec names a workflow node and binds its function.
type NodeSpec = domain.NodeSpec

// EdgeSpec is a static transition between nodes.
type EdgeSpec = domain.EdgeSpec

// RouterSpec binds a conditional router to a node.
type RouterSpec = domain.RouterSpec

// NodeFunc transforms conversation state; returning an error fails the
// turn without committing anything.
type NodeFunc = domain.NodeFunc

// RouterFunc picks the next node after its host node ran.
type RouterFunc = domain.RouterFunc

// Polisher rewrites a drafted reply before it is finalized.
type Polisher = ports.Polisher

// PolishResult carries the polished reply and whether polishing applied.
type PolishResult = ports.PolishResult

// Error is the structured error type returned across the public API.
type Error = domain.Error

// NodeError wraps a failure inside a workflow node.
type NodeError = domain.NodeError

// StorageError wraps a failure in the checkpoint store.
type StorageError = domain.StorageError

// End terminates a workflow path when used as an edge or router target.
const End = domain.End

// Intents produced by the stock customer-service workflow.
const (
	IntentFAQ   = agent.IntentFAQ
	IntentOrder = agent.IntentOrder
	IntentHuman = agent.IntentHuman
)

// EscalationNotice is the acknowledgment shown for a turn that paused
// for human review.
const EscalationNotice = agent.EscalationNotice

// Sentinel errors surfaced by the manager.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrClosed            = domain.ErrClosed
	ErrSearchUnavailable = domain.ErrSearchUnavailable
)

// IsNodeError reports whether err originated inside a workflow node.
func IsNodeError(err error) bool {
	return domain.IsNodeError(err)
}

// IsSearchUnavailable reports whether err means no index is attached.
func IsSearchUnavailable(err error) bool {
	return domain.IsSearchUnavailable(err)
}

// StringPtr returns a pointer to v, a convenience for the pointer-typed
// optional fields of ConversationState.
func StringPtr(v string) *string {
	return domain.StringPtr(v)
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return domain.BoolPtr(v)
}

// New creates a manager running the stock customer-service workflow.
// A nil config uses the defaults.
func New(ctx context.Context, config *Config) (*Manager, error) {
	cfg := config
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}
	return core.New(ctx, cfg, agent.GraphSpec(nil, cfg.Agent))
}

// NewWithGraph creates a manager executing a custom workflow graph.
func NewWithGraph(ctx context.Context, config *Config, spec GraphSpec) (*Manager, error) {
	return core.New(ctx, config, spec)
}

// DefaultGraph returns the stock customer-service workflow, optionally
// with a custom polisher for the tone node. A nil polisher falls back to
// the built-in template polisher.
func DefaultGraph(polisher Polisher, cfg AgentConfig) GraphSpec {
	return agent.GraphSpec(polisher, cfg)
}
