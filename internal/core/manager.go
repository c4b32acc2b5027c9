package core

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/imniteen/loom/internal/adapters/checkpoint"
	"github.com/imniteen/loom/internal/adapters/engine"
	"github.com/imniteen/loom/internal/adapters/indexer"
	"github.com/imniteen/loom/internal/adapters/search"
	"github.com/imniteen/loom/internal/adapters/store"
	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

// apologyReply is the user-visible fallback when a turn fails for a
// reason that is not a durability violation.
const apologyReply = "I apologize, but I encountered an error. Please try again or contact support."

// Manager owns the full turn pipeline: session resolution, per-thread
// locking, checkpointed graph execution, and the best-effort publish to
// the search index.
type Manager struct {
	config      *domain.Config
	logger      *slog.Logger
	graph       *domain.Graph
	store       ports.StateStore
	checkpoints ports.CheckpointManager
	index       ports.SearchIndex
	indexer     ports.Indexer
	engine      ports.TurnEngine
	locks       ports.ThreadLocker
	router      ports.SessionRouter

	storeDegraded bool

	mu     sync.Mutex
	closed bool
}

// New wires the manager from config and a graph spec. Configuration and
// graph defects are fatal here; a broken search index is not, the
// manager comes up with search disabled instead.
func New(ctx context.Context, config *domain.Config, spec domain.GraphSpec) (*Manager, error) {
	if config == nil {
		config = domain.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "loom")

	graph, err := domain.BuildGraph(spec)
	if err != nil {
		return nil, err
	}

	stateStore, degraded, err := store.Open(config, logger)
	if err != nil {
		return nil, err
	}
	if err := stateStore.Setup(ctx); err != nil {
		return nil, err
	}

	checkpoints := checkpoint.NewManager(stateStore, logger)

	index := openSearchIndex(ctx, config, logger)

	var publisher ports.Indexer
	if index != nil {
		publisher = indexer.NewQueue(index, config.Indexer, logger)
	} else {
		publisher = indexer.NewNoop()
	}

	return &Manager{
		config:        config,
		logger:        logger,
		graph:         graph,
		store:         stateStore,
		checkpoints:   checkpoints,
		index:         index,
		indexer:       publisher,
		engine:        engine.NewEngine(graph, checkpoints, config.Engine, logger),
		locks:         engine.NewThreadLocks(),
		router:        engine.NewSessionRouter(checkpoints, logger),
		storeDegraded: degraded,
	}, nil
}

// openSearchIndex never fails the manager: the index is best effort by
// contract, so open or migration errors log a warning and disable it.
func openSearchIndex(ctx context.Context, config *domain.Config, logger *slog.Logger) ports.SearchIndex {
	if !config.Search.Enabled {
		return nil
	}

	index, err := search.NewLibSQLIndex(config.SearchPath(), logger)
	if err != nil {
		logger.Warn("search index unavailable, continuing without search",
			"path", config.SearchPath(),
			"error", err)
		return nil
	}

	if err := index.Setup(ctx); err != nil {
		logger.Warn("search index migration failed, continuing without search",
			"path", config.SearchPath(),
			"error", err)
		index.Close()
		return nil
	}

	return index
}

// RunTurn executes one conversational turn. The error return is reserved
// for durability and configuration failures; node failures come back as
// a TurnResult with Failure set and an apology reply, leaving the thread
// at its previous checkpoint.
func (m *Manager) RunTurn(ctx context.Context, userID, sessionID, message string) (*domain.TurnResult, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return nil, domain.Error{Type: domain.ErrorTypeValidation, Message: "message is empty"}
	}

	resolution, err := m.router.ResolveThread(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	lockCtx := ctx
	if m.config.Engine.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, m.config.Engine.LockTimeout)
		defer cancel()
	}
	release, err := m.locks.Acquire(lockCtx, resolution.ThreadID)
	if err != nil {
		return nil, err
	}
	defer release()

	cp, exists, err := m.checkpoints.Load(ctx, resolution.ThreadID)
	if err != nil {
		return nil, err
	}

	state, resumeNode := m.prepareTurn(cp, exists, resolution, userID, message)

	finalState, outcome, err := m.engine.ExecuteTurn(ctx, state, resumeNode)
	if err != nil {
		if domain.IsNodeError(err) {
			return m.failTurn(state, resolution, err), nil
		}
		return nil, err
	}

	m.indexer.Publish(finalState)

	return &domain.TurnResult{
		State:       finalState,
		ThreadID:    resolution.ThreadID,
		SessionID:   resolution.SessionID,
		Version:     outcome.Version,
		Interrupted: outcome.Interrupted,
	}, nil
}

// prepareTurn restores carried-forward state for an existing thread or
// initializes a fresh one, then appends the turn's single user record.
func (m *Manager) prepareTurn(cp *domain.Checkpoint, exists bool, resolution ports.ThreadResolution, userID, message string) (domain.ConversationState, string) {
	var state domain.ConversationState
	var resumeNode string

	if exists {
		state = cp.State
		state.UserMessage = message
		state.DraftReply = nil
		state.FinalReply = nil
		state.ReplySource = nil
		if cp.NextNode != "" && state.AwaitingInput {
			resumeNode = cp.NextNode
		}
	} else {
		state = domain.NewConversationState(resolution.ThreadID, userID, resolution.SessionID)
		state.UserMessage = message
		state.TraceID = uuid.NewString()[:8]
		state.Resolved = domain.BoolPtr(false)
	}

	state.AppendTurn(domain.RoleUser, message)
	return state, resumeNode
}

// failTurn recovers a node failure into an explicit failure result. The
// state carries the apology but is never checkpointed or indexed, so a
// retry proceeds from the previous checkpoint.
func (m *Manager) failTurn(state domain.ConversationState, resolution ports.ThreadResolution, cause error) *domain.TurnResult {
	m.logger.Error("turn failed",
		"thread_id", resolution.ThreadID,
		"trace_id", state.TraceID,
		"error", cause)

	state.FinalReply = domain.StringPtr(apologyReply)
	state.Resolved = domain.BoolPtr(false)

	return &domain.TurnResult{
		State:     state,
		ThreadID:  resolution.ThreadID,
		SessionID: resolution.SessionID,
		Failure:   cause,
	}
}

// Search queries the secondary index. It reports ErrSearchUnavailable
// when the manager runs without one.
func (m *Manager) Search(ctx context.Context, query ports.SearchQuery) ([]domain.SearchDocument, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	if m.index == nil {
		return nil, domain.ErrSearchUnavailable
	}
	return m.index.Search(ctx, query)
}

// Stats aggregates indexed conversations, optionally scoped to a user.
func (m *Manager) Stats(ctx context.Context, userID string) (*domain.UserStatistics, error) {
	if err := m.guard(); err != nil {
		return nil, err
	}
	if m.index == nil {
		return nil, domain.ErrSearchUnavailable
	}
	return m.index.Aggregate(ctx, userID)
}

// StoreDegraded reports whether the primary store fell back to memory.
func (m *Manager) StoreDegraded() bool {
	return m.storeDegraded
}

// SearchAvailable reports whether a search index is attached.
func (m *Manager) SearchAvailable() bool {
	return m.index != nil
}

// Close drains the indexer, then closes the index and the store. Index
// shutdown problems are logged, not returned; the store close is the
// durability boundary and its error surfaces.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.config.Indexer.CloseTimeout)
	defer cancel()

	if err := m.indexer.Close(ctx); err != nil {
		m.logger.Warn("indexer shutdown incomplete", "error", err)
	}
	if m.index != nil {
		if err := m.index.Close(); err != nil {
			m.logger.Warn("search index close failed", "error", err)
		}
	}

	if err := m.store.Close(); err != nil {
		return err
	}

	m.logger.Debug("manager closed")
	return nil
}

func (m *Manager) guard() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrClosed
	}
	return nil
}
