package scenario

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imniteen/loom/internal/agent"
	"github.com/imniteen/loom/internal/core"
	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

type fakeConversation struct {
	results  []*domain.TurnResult
	sessions []string
	docs     []domain.SearchDocument
}

func (f *fakeConversation) RunTurn(ctx context.Context, userID, sessionID, message string) (*domain.TurnResult, error) {
	f.sessions = append(f.sessions, sessionID)
	res := f.results[len(f.sessions)-1]
	if res.SessionID == "" {
		res.SessionID = "s-fake"
	}
	return res, nil
}

func (f *fakeConversation) Search(ctx context.Context, query ports.SearchQuery) ([]domain.SearchDocument, error) {
	return f.docs, nil
}

func (f *fakeConversation) SearchAvailable() bool { return true }

func faqResult(intent string, resolved bool, reply string) *domain.TurnResult {
	return &domain.TurnResult{
		State: domain.ConversationState{
			Intent:     domain.StringPtr(intent),
			Resolved:   domain.BoolPtr(resolved),
			FinalReply: domain.StringPtr(reply),
		},
	}
}

func TestRunnerPassesMatchingExpectations(t *testing.T) {
	fake := &fakeConversation{
		results: []*domain.TurnResult{
			faqResult(agent.IntentFAQ, true, "Refunds are accepted within 30 days."),
		},
	}
	r := &Runner{Manager: fake}

	sc := Scenario{
		Name:   "happy",
		UserID: "alice",
		Steps: []Step{{
			Message: "return policy?",
			Expect: Expectation{
				Intent:        agent.IntentFAQ,
				Resolved:      domain.BoolPtr(true),
				ReplyContains: []string{"30 days"},
			},
		}},
	}

	require.NoError(t, r.Run(context.Background(), sc))
}

func TestRunnerReportsExpectationMismatch(t *testing.T) {
	fake := &fakeConversation{
		results: []*domain.TurnResult{faqResult(agent.IntentFAQ, true, "hello")},
	}
	r := &Runner{Manager: fake}

	sc := Scenario{
		Name:   "mismatch",
		UserID: "alice",
		Steps:  []Step{{Message: "hi", Expect: Expectation{Intent: agent.IntentOrder}}},
	}

	err := r.Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected intent "order"`)
}

func TestRunnerRequiresReopenForRestartSteps(t *testing.T) {
	fake := &fakeConversation{
		results: []*domain.TurnResult{faqResult(agent.IntentFAQ, true, "ok")},
	}
	r := &Runner{Manager: fake}

	sc := Scenario{
		Name:   "restart",
		UserID: "alice",
		Steps:  []Step{{Message: "hi", Restart: true}},
	}

	err := r.Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restart")
}

func TestRunnerNewSessionDropsSession(t *testing.T) {
	fake := &fakeConversation{
		results: []*domain.TurnResult{
			faqResult(agent.IntentFAQ, true, "a"),
			faqResult(agent.IntentFAQ, true, "b"),
			faqResult(agent.IntentFAQ, true, "c"),
		},
	}
	r := &Runner{Manager: fake}

	sc := Scenario{
		Name:   "sessions",
		UserID: "alice",
		Steps: []Step{
			{Message: "first"},
			{Message: "second"},
			{Message: "third", NewSession: true},
		},
	}

	require.NoError(t, r.Run(context.Background(), sc))
	assert.Equal(t, []string{"", "s-fake", ""}, fake.sessions)
}

func TestBuiltinScenariosEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end scenario run")
	}

	cfg := domain.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg.Store.SyncWrites = false
	cfg.Indexer.RetryBackoff = time.Millisecond
	cfg.Indexer.MaxBackoff = 5 * time.Millisecond

	ctx := context.Background()
	mgr, err := core.New(ctx, cfg, agent.GraphSpec(nil, cfg.Agent))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	reopen := func(ctx context.Context) (Conversation, error) {
		if err := mgr.Close(); err != nil {
			return nil, err
		}
		next, err := core.New(ctx, cfg, agent.GraphSpec(nil, cfg.Agent))
		if err != nil {
			return nil, err
		}
		mgr = next
		return next, nil
	}

	for _, sc := range Builtin() {
		r := &Runner{Manager: mgr, Reopen: reopen}
		require.NoError(t, r.Run(ctx, sc), "scenario %q", sc.Name)
	}
}
