package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

const (
	searchSettle = 5 * time.Second
	searchPoll   = 50 * time.Millisecond
)

// Conversation is the slice of the manager a scenario drives.
type Conversation interface {
	RunTurn(ctx context.Context, userID, sessionID, message string) (*domain.TurnResult, error)
	Search(ctx context.Context, query ports.SearchQuery) ([]domain.SearchDocument, error)
	SearchAvailable() bool
}

// Runner executes scenarios against a live manager.
type Runner struct {
	Manager Conversation

	// Reopen replaces the manager for steps that request a restart.
	// Scenarios with restart steps fail when it is nil.
	Reopen func(ctx context.Context) (Conversation, error)

	// Output receives progress lines; nil keeps the runner silent.
	Output io.Writer
}

// Run plays a scenario turn by turn and fails on the first expectation
// the engine does not meet.
func (r *Runner) Run(ctx context.Context, sc Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	r.printf("=== scenario %s ===", sc.Name)
	if sc.Description != "" {
		r.printf("%s", sc.Description)
	}

	sessionID := ""
	for i, step := range sc.Steps {
		if step.Restart {
			if r.Reopen == nil {
				return fmt.Errorf("scenario %q step %d requests a restart but no reopen hook is set", sc.Name, i+1)
			}
			r.printf("--- restarting manager ---")
			m, err := r.Reopen(ctx)
			if err != nil {
				return fmt.Errorf("scenario %q step %d: reopen: %w", sc.Name, i+1, err)
			}
			r.Manager = m
		}
		if step.NewSession {
			sessionID = ""
		}

		r.printf("[%s] %s", sc.UserID, step.Message)
		res, err := r.Manager.RunTurn(ctx, sc.UserID, sessionID, step.Message)
		if err != nil {
			return fmt.Errorf("scenario %q step %d: %w", sc.Name, i+1, err)
		}
		sessionID = res.SessionID

		if res.Interrupted {
			r.printf("[agent] (paused for human review)")
		} else {
			r.printf("[agent] %s", res.Reply())
		}

		if err := checkStep(sc.Name, i+1, step.Expect, res); err != nil {
			return err
		}
	}

	if sc.Search != nil {
		if err := r.checkSearch(ctx, sc); err != nil {
			return err
		}
	}

	r.printf("=== scenario %s passed ===", sc.Name)
	return nil
}

func checkStep(name string, step int, exp Expectation, res *domain.TurnResult) error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("scenario %q step %d: %s", name, step, fmt.Sprintf(format, args...))
	}

	if exp.Intent != "" {
		got := ""
		if res.State.Intent != nil {
			got = *res.State.Intent
		}
		if got != exp.Intent {
			return fail("expected intent %q, got %q", exp.Intent, got)
		}
	}
	if exp.Resolved != nil && res.State.IsResolved() != *exp.Resolved {
		return fail("expected resolved=%t, got %t", *exp.Resolved, res.State.IsResolved())
	}
	if exp.AwaitingInput != nil && res.State.AwaitingInput != *exp.AwaitingInput {
		return fail("expected awaiting_input=%t, got %t", *exp.AwaitingInput, res.State.AwaitingInput)
	}
	if exp.Interrupted != nil && res.Interrupted != *exp.Interrupted {
		return fail("expected interrupted=%t, got %t", *exp.Interrupted, res.Interrupted)
	}
	if exp.OrderID != "" {
		got := ""
		if res.State.OrderID != nil {
			got = *res.State.OrderID
		}
		if got != exp.OrderID {
			return fail("expected order_id %q, got %q", exp.OrderID, got)
		}
	}
	for _, want := range exp.ReplyContains {
		if !strings.Contains(res.Reply(), want) {
			return fail("reply %q does not contain %q", res.Reply(), want)
		}
	}
	if exp.MinHistory > 0 && len(res.State.History) < exp.MinHistory {
		return fail("expected at least %d history records, got %d", exp.MinHistory, len(res.State.History))
	}
	return nil
}

// checkSearch polls until the index has caught up with the scenario's
// turns. Indexing is asynchronous, so absence right after the last turn
// is expected; absence after the settle window is a failure.
func (r *Runner) checkSearch(ctx context.Context, sc Scenario) error {
	check := sc.Search
	r.printf("searching for %q", check.Query)

	deadline := time.Now().Add(searchSettle)
	for {
		docs, err := r.Manager.Search(ctx, ports.SearchQuery{
			Text:   check.Query,
			UserID: sc.UserID,
		})
		if errors.Is(err, domain.ErrSearchUnavailable) {
			return fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		if err == nil && len(docs) >= check.MinResults {
			r.printf("found %d conversations", len(docs))
			return nil
		}

		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("scenario %q: search: %w", sc.Name, err)
			}
			return fmt.Errorf("scenario %q: expected at least %d search results for %q, got %d",
				sc.Name, check.MinResults, check.Query, len(docs))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(searchPoll):
		}
	}
}

func (r *Runner) printf(format string, args ...interface{}) {
	if r.Output == nil {
		return
	}
	fmt.Fprintf(r.Output, format+"\n", args...)
}
