package search

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestIndex(t *testing.T) *LibSQLIndex {
	t.Helper()

	idx, err := NewLibSQLIndex(filepath.Join(t.TempDir(), "search.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	require.NoError(t, idx.Setup(context.Background()))
	return idx
}

func testDocument(threadID, userID, intent, transcript string, resolved bool, at time.Time) domain.SearchDocument {
	return domain.SearchDocument{
		ThreadID:   threadID,
		SessionID:  "s1",
		UserID:     userID,
		Intent:     intent,
		Resolved:   resolved,
		Transcript: transcript,
		History: []domain.TurnRecord{
			{Role: domain.RoleUser, Content: transcript, Timestamp: at},
		},
		TraceID:   "abcd1234",
		IndexedAt: at,
	}
}

func TestUpsertAndSearchRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	now := time.Now().UTC()

	doc := testDocument("alice:s1", "alice", "faq", "what is your refund policy", true, now)
	doc.OrderID = "12345"
	require.NoError(t, idx.Upsert(ctx, doc))
	require.NoError(t, idx.Upsert(ctx, testDocument("bob:s1", "bob", "order", "where is my package", false, now)))

	docs, err := idx.Search(ctx, ports.SearchQuery{Text: "refund"})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got := docs[0]
	assert.Equal(t, "alice:s1", got.ThreadID)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "faq", got.Intent)
	assert.Equal(t, "12345", got.OrderID)
	assert.True(t, got.Resolved)
	assert.Equal(t, "what is your refund policy", got.Transcript)
	assert.Equal(t, "abcd1234", got.TraceID)
	require.Len(t, got.History, 1)
	assert.Equal(t, domain.RoleUser, got.History[0].Role)
	assert.WithinDuration(t, now, got.IndexedAt, time.Second)
}

func TestUpsertReplacesDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	base := time.Now().UTC()
	doc := testDocument("alice:s1", "alice", "order", "where is order #12345", false, base)
	require.NoError(t, idx.Upsert(ctx, doc))

	doc.Resolved = true
	doc.Transcript = "where is order #12345 it arrives thursday"
	doc.IndexedAt = base.Add(time.Second)
	require.NoError(t, idx.Upsert(ctx, doc))

	stats, err := idx.Aggregate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalConversations)
	assert.Equal(t, int64(1), stats.ResolvedCount)

	docs, err := idx.Search(ctx, ports.SearchQuery{Text: "thursday"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Resolved)

	// A term present in both versions must still match exactly once,
	// which fails if the update trigger leaves a stale row behind.
	docs, err = idx.Search(ctx, ports.SearchQuery{Text: "12345"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSearchFilters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, idx.Upsert(ctx, testDocument("alice:s1", "alice", "faq", "shipping takes five days", true, now)))
	require.NoError(t, idx.Upsert(ctx, testDocument("alice:s2", "alice", "order", "shipping status of my order", false, now.Add(time.Second))))
	require.NoError(t, idx.Upsert(ctx, testDocument("bob:s1", "bob", "faq", "shipping costs", true, now.Add(2*time.Second))))

	tests := []struct {
		name    string
		query   ports.SearchQuery
		threads []string
	}{
		{
			name:    "by user",
			query:   ports.SearchQuery{Text: "shipping", UserID: "alice"},
			threads: []string{"alice:s2", "alice:s1"},
		},
		{
			name:    "by intent",
			query:   ports.SearchQuery{Text: "shipping", Intent: "order"},
			threads: []string{"alice:s2"},
		},
		{
			name:    "by resolved",
			query:   ports.SearchQuery{Text: "shipping", Resolved: domain.BoolPtr(false)},
			threads: []string{"alice:s2"},
		},
		{
			name:    "no text lists by recency",
			query:   ports.SearchQuery{UserID: "alice"},
			threads: []string{"alice:s2", "alice:s1"},
		},
		{
			name:    "limit applies",
			query:   ports.SearchQuery{Text: "shipping", Limit: 1},
			threads: []string{"bob:s1"},
		},
		{
			name:    "no match",
			query:   ports.SearchQuery{Text: "refund"},
			threads: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := idx.Search(ctx, tt.query)
			require.NoError(t, err)

			var threads []string
			for _, d := range docs {
				threads = append(threads, d.ThreadID)
			}
			assert.Equal(t, tt.threads, threads)
		})
	}
}

func TestSearchPhraseInputIsEscaped(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc := testDocument("alice:s1", "alice", "faq", "refund now or cancel immediately", false, time.Now().UTC())
	require.NoError(t, idx.Upsert(ctx, doc))

	// Raw AND/OR/quote syntax must not leak through as operators.
	docs, err := idx.Search(ctx, ports.SearchQuery{Text: "refund now"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = idx.Search(ctx, ports.SearchQuery{Text: `"refund`})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestAggregate(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, idx.Upsert(ctx, testDocument("alice:s1", "alice", "faq", "refund policy", true, now)))
	require.NoError(t, idx.Upsert(ctx, testDocument("alice:s2", "alice", "faq", "payment methods", true, now)))
	require.NoError(t, idx.Upsert(ctx, testDocument("alice:s3", "alice", "order", "order status", false, now)))
	require.NoError(t, idx.Upsert(ctx, testDocument("bob:s1", "bob", "human", "very angry", false, now)))

	stats, err := idx.Aggregate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalConversations)
	assert.Equal(t, int64(2), stats.ResolvedCount)
	assert.Equal(t, map[string]int64{"faq": 2, "order": 1}, stats.IntentCounts)

	all, err := idx.Aggregate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.TotalConversations)
	assert.Equal(t, int64(1), all.IntentCounts["human"])
}

func TestIndexClosedGuard(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	ctx := context.Background()
	err := idx.Upsert(ctx, domain.SearchDocument{ThreadID: "alice:s1"})
	assert.ErrorIs(t, err, domain.ErrClosed)

	_, err = idx.Search(ctx, ports.SearchQuery{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrClosed)

	_, err = idx.Aggregate(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrClosed)
}

func TestEscapeFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"refund", "refund"},
		{"refund now", `"refund now"`},
		{`say "hi"`, `"say ""hi"""`},
		{`"`, `""`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeFTSQuery(tt.in), "input %q", tt.in)
	}
}
