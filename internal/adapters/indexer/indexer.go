package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/helpers/backoff"
	"github.com/imniteen/loom/internal/ports"
)

const upsertTimeout = 5 * time.Second

// Queue publishes completed turns to the secondary index from a worker
// pool. It is fire and forget: a full queue drops the publish, and an
// upsert that keeps failing after retries is logged and abandoned.
type Queue struct {
	index   ports.SearchIndex
	logger  *slog.Logger
	queue   chan domain.SearchDocument
	backoff backoff.Strategy
	cfg     domain.IndexerConfig

	workers conc.WaitGroup
	stop    chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewQueue(index ports.SearchIndex, cfg domain.IndexerConfig, logger *slog.Logger) *Queue {
	q := &Queue{
		index:   index,
		logger:  logger.With("component", "indexer"),
		queue:   make(chan domain.SearchDocument, cfg.QueueSize),
		backoff: backoff.NewExponentialWithJitter(cfg.RetryBackoff, cfg.MaxBackoff),
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		q.workers.Go(q.run)
	}
	go func() {
		if r := q.workers.WaitAndRecover(); r != nil {
			q.logger.Error("indexer worker panicked", "error", r.AsError())
		}
		close(q.done)
	}()

	return q
}

// Publish snapshots the state and schedules the index write. It never
// blocks and never reports failure to the caller.
func (q *Queue) Publish(state domain.ConversationState) {
	doc := domain.NewSearchDocument(state)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logger.Debug("indexer closed, dropping publish", "thread_id", doc.ThreadID)
		return
	}

	select {
	case q.queue <- doc:
	default:
		q.logger.Warn("indexer queue full, dropping publish",
			"thread_id", doc.ThreadID,
			"trace_id", doc.TraceID)
	}
}

// Close stops intake and waits for queued work to drain until ctx
// expires. Pending retry waits are abandoned immediately.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.queue)
	close(q.stop)
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.logger.Warn("indexer close timed out with work pending")
		return ctx.Err()
	}
}

func (q *Queue) run() {
	for doc := range q.queue {
		q.process(doc)
	}
}

func (q *Queue) process(doc domain.SearchDocument) {
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), upsertTimeout)
		err := q.index.Upsert(ctx, doc)
		cancel()

		if err == nil {
			q.logger.Debug("conversation indexed",
				"thread_id", doc.ThreadID,
				"trace_id", doc.TraceID,
				"attempt", attempt)
			return
		}

		if attempt >= q.cfg.MaxAttempts {
			q.logger.Error("indexing failed, giving up",
				"thread_id", doc.ThreadID,
				"trace_id", doc.TraceID,
				"attempts", attempt,
				"error", err)
			return
		}

		delay := q.backoff.Delay(attempt)
		q.logger.Warn("indexing failed, retrying",
			"thread_id", doc.ThreadID,
			"attempt", attempt,
			"retry_in", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-q.stop:
			q.logger.Warn("indexer shutting down, abandoning retry", "thread_id", doc.ThreadID)
			return
		}
	}
}

// Noop satisfies the indexer port when no search index is configured.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) Publish(domain.ConversationState) {}

func (Noop) Close(context.Context) error { return nil }
