package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/imniteen/loom"
	"github.com/imniteen/loom/internal/scenario"
)

func runSearch(ctx context.Context, out io.Writer, mgr *loom.Manager, userID, query string) error {
	docs, err := mgr.Search(ctx, loom.SearchQuery{Text: query, UserID: userID, Limit: 10})
	if err != nil {
		if loom.IsSearchUnavailable(err) {
			return &exitError{code: 1, message: "search is disabled (--no-search or search.enabled=false)"}
		}
		return err
	}

	if len(docs) == 0 {
		fmt.Fprintf(out, "no conversations match %q\n", query)
		return nil
	}

	fmt.Fprintf(out, "found %d conversations:\n", len(docs))
	for i, doc := range docs {
		status := "open"
		if doc.Resolved {
			status = "resolved"
		}
		if doc.AwaitingInput {
			status = "awaiting human"
		}
		fmt.Fprintf(out, "%d. session %s | intent %s | %s | %d messages | indexed %s\n",
			i+1, doc.SessionID, orDash(doc.Intent), status, len(doc.History),
			doc.IndexedAt.Format(time.RFC3339))
	}
	return nil
}

func runStats(ctx context.Context, out io.Writer, mgr *loom.Manager, userID string) error {
	stats, err := mgr.Stats(ctx, userID)
	if err != nil {
		if loom.IsSearchUnavailable(err) {
			return &exitError{code: 1, message: "statistics need the search index; start without --no-search"}
		}
		return err
	}

	fmt.Fprintf(out, "statistics for %s:\n", userID)
	fmt.Fprintf(out, "  conversations: %d\n", stats.TotalConversations)
	fmt.Fprintf(out, "  resolved:      %d\n", stats.ResolvedCount)
	if len(stats.IntentCounts) > 0 {
		fmt.Fprintln(out, "  intents:")
		intents := make([]string, 0, len(stats.IntentCounts))
		for intent := range stats.IntentCounts {
			intents = append(intents, intent)
		}
		sort.Strings(intents)
		for _, intent := range intents {
			fmt.Fprintf(out, "    %-8s %d\n", orDash(intent), stats.IntentCounts[intent])
		}
	}
	return nil
}

func pickScenarios(name string) ([]scenario.Scenario, error) {
	if name == "all" {
		return scenario.Builtin(), nil
	}
	sc, ok := scenario.ByName(name)
	if !ok {
		return nil, &exitError{
			code:    2,
			message: fmt.Sprintf("unknown scenario %q (builtin: basic, hitl, durability, search)", name),
		}
	}
	return []scenario.Scenario{sc}, nil
}

// runScenarios owns its manager so durability scenarios can close and
// reopen it mid-run.
func runScenarios(ctx context.Context, out io.Writer, cfg *loom.Config, scs []scenario.Scenario) error {
	mgr, err := openManager(ctx, out, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	reopen := func(ctx context.Context) (scenario.Conversation, error) {
		if err := mgr.Close(); err != nil {
			return nil, err
		}
		next, err := loom.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		mgr = next
		return next, nil
	}

	for _, sc := range scs {
		if sc.Search != nil && !mgr.SearchAvailable() {
			fmt.Fprintf(out, "skipping scenario %q: search index unavailable\n\n", sc.Name)
			continue
		}
		runner := &scenario.Runner{Manager: mgr, Reopen: reopen, Output: out}
		if err := runner.Run(ctx, sc); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "all scenarios passed")
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
