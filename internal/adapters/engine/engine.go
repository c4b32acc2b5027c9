package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

// Engine walks the graph for one turn, checkpointing after every
// completed node. A checkpoint write failure aborts the turn there; a
// node failure surfaces as a NodeError without committing anything, so
// the durable state never reflects a half-executed node.
type Engine struct {
	graph       *domain.Graph
	checkpoints ports.CheckpointManager
	interrupts  *InterruptController
	logger      *slog.Logger
	maxSteps    int
	nodeTimeout time.Duration
}

func NewEngine(graph *domain.Graph, checkpoints ports.CheckpointManager, cfg domain.EngineConfig, logger *slog.Logger) *Engine {
	return &Engine{
		graph:       graph,
		checkpoints: checkpoints,
		interrupts:  NewInterruptController(graph.Interrupts()),
		logger:      logger.With("component", "engine"),
		maxSteps:    cfg.MaxSteps,
		nodeTimeout: cfg.NodeTimeout,
	}
}

func (e *Engine) ExecuteTurn(ctx context.Context, state domain.ConversationState, resumeNode string) (domain.ConversationState, ports.TurnOutcome, error) {
	var outcome ports.TurnOutcome

	pending := e.graph.Start()
	if resumeNode != "" {
		if !e.graph.HasNode(resumeNode) {
			return state, outcome, domain.Error{
				Type:    domain.ErrorTypeConfiguration,
				Message: "checkpoint references unknown node",
				Details: map[string]interface{}{"node": resumeNode},
			}
		}
		pending = resumeNode
		state.AwaitingInput = false
	} else if e.interrupts.ShouldInterrupt(pending) {
		// Halting before the first node still commits a checkpoint so
		// the next turn resumes into it.
		return e.interrupt(ctx, state, pending, outcome)
	}

	for {
		outcome.Steps++
		if outcome.Steps > e.maxSteps {
			return state, outcome, domain.Error{
				Type:    domain.ErrorTypeConfiguration,
				Message: "turn exceeded max steps",
				Details: map[string]interface{}{"max_steps": e.maxSteps, "node": pending},
			}
		}

		fn, ok := e.graph.Node(pending)
		if !ok {
			return state, outcome, domain.Error{
				Type:    domain.ErrorTypeConfiguration,
				Message: "unknown node",
				Details: map[string]interface{}{"node": pending},
			}
		}

		e.logger.Debug("executing node",
			"thread_id", state.ThreadID,
			"trace_id", state.TraceID,
			"node", pending,
			"step", outcome.Steps)

		nodeCtx := ctx
		var cancel context.CancelFunc
		if e.nodeTimeout > 0 {
			nodeCtx, cancel = context.WithTimeout(ctx, e.nodeTimeout)
		}
		newState, err := fn(nodeCtx, state.Clone())
		if cancel != nil {
			cancel()
		}
		if err != nil {
			return state, outcome, domain.NewNodeError(pending, err)
		}
		state = newState

		next, err := e.graph.Successor(pending, state)
		if err != nil {
			return state, outcome, err
		}

		if next == domain.End {
			e.finishTurn(&state)
			version, err := e.checkpoints.Save(ctx, state.ThreadID, state, "")
			if err != nil {
				return state, outcome, err
			}
			outcome.Version = version
			e.logger.Debug("turn complete",
				"thread_id", state.ThreadID,
				"trace_id", state.TraceID,
				"steps", outcome.Steps,
				"version", version)
			return state, outcome, nil
		}

		if e.interrupts.ShouldInterrupt(next) {
			return e.interrupt(ctx, state, next, outcome)
		}

		version, err := e.checkpoints.Save(ctx, state.ThreadID, state, next)
		if err != nil {
			return state, outcome, err
		}
		outcome.Version = version
		pending = next
	}
}

func (e *Engine) interrupt(ctx context.Context, state domain.ConversationState, node string, outcome ports.TurnOutcome) (domain.ConversationState, ports.TurnOutcome, error) {
	state.AwaitingInput = true
	state.UpdatedAt = time.Now().UTC()

	version, err := e.checkpoints.Save(ctx, state.ThreadID, state, node)
	if err != nil {
		return state, outcome, err
	}

	outcome.Interrupted = true
	outcome.NextNode = node
	outcome.Version = version

	e.logger.Info("turn interrupted",
		"thread_id", state.ThreadID,
		"trace_id", state.TraceID,
		"next_node", node,
		"version", version)

	return state, outcome, nil
}

// finishTurn applies terminal bookkeeping before the final checkpoint:
// the thread stops awaiting input, reaching End marks it resolved, and
// the outgoing reply lands in the history exactly once.
func (e *Engine) finishTurn(state *domain.ConversationState) {
	state.AwaitingInput = false
	state.Resolved = domain.BoolPtr(true)

	if state.FinalReply == nil && state.DraftReply != nil {
		state.FinalReply = domain.StringPtr(*state.DraftReply)
		if state.ReplySource == nil {
			state.ReplySource = domain.StringPtr(domain.ReplySourceDraft)
		}
	}
	if state.FinalReply != nil {
		state.AppendTurn(domain.RoleAssistant, *state.FinalReply)
	}
	state.UpdatedAt = time.Now().UTC()
}
