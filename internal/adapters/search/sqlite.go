package search

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/imniteen/loom/internal/domain"
	"github.com/imniteen/loom/internal/ports"
	"github.com/imniteen/loom/internal/xjson"
)

//go:embed migrations/*.sql
var migrations embed.FS

const defaultSearchLimit = 10

// timeLayout pads fractional seconds so indexed_at sorts
// lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const upsertConversation = `
INSERT INTO conversations (
	thread_id, session_id, user_id, intent, order_id, resolved,
	awaiting_input, transcript, history_json, trace_id, indexed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(thread_id) DO UPDATE SET
	session_id     = excluded.session_id,
	user_id        = excluded.user_id,
	intent         = excluded.intent,
	order_id       = excluded.order_id,
	resolved       = excluded.resolved,
	awaiting_input = excluded.awaiting_input,
	transcript     = excluded.transcript,
	history_json   = excluded.history_json,
	trace_id       = excluded.trace_id,
	indexed_at     = excluded.indexed_at`

const selectColumns = `c.thread_id, c.session_id, c.user_id, c.intent, c.order_id,
	c.resolved, c.awaiting_input, c.transcript, c.history_json, c.trace_id, c.indexed_at`

// LibSQLIndex is the secondary full-text index over completed turns. It
// is best effort: callers treat every error here as non-fatal.
type LibSQLIndex struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewLibSQLIndex(path string, logger *slog.Logger) (*LibSQLIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeStorage,
			Message: "failed to create search index directory",
			Details: map[string]interface{}{"path": path, "error": err.Error()},
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-64000&_temp_store=memory", path)
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeStorage,
			Message: "failed to open search database",
			Details: map[string]interface{}{"path": path, "error": err.Error()},
		}
	}

	// One connection serializes writers; SQLite allows a single writer
	// per database and concurrent upserts would trip SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &LibSQLIndex{
		db:     db,
		logger: logger.With("component", "search-index"),
	}, nil
}

func (x *LibSQLIndex) Setup(ctx context.Context) error {
	if err := x.guard(); err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return domain.NewStorageError("migrate", "", err)
	}
	if err := goose.UpContext(ctx, x.db, "migrations"); err != nil {
		return domain.NewStorageError("migrate", "", err)
	}

	x.logger.Debug("search index ready")
	return nil
}

func (x *LibSQLIndex) Upsert(ctx context.Context, doc domain.SearchDocument) error {
	if err := x.guard(); err != nil {
		return err
	}

	history, err := xjson.Marshal(doc.History)
	if err != nil {
		return domain.NewStorageError("encode", doc.ThreadID, err)
	}

	indexedAt := doc.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}

	_, err = x.db.ExecContext(ctx, upsertConversation,
		doc.ThreadID, doc.SessionID, doc.UserID, doc.Intent, doc.OrderID,
		boolToInt(doc.Resolved), boolToInt(doc.AwaitingInput),
		doc.Transcript, string(history), doc.TraceID,
		indexedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return domain.NewStorageError("upsert", doc.ThreadID, err)
	}

	return nil
}

func (x *LibSQLIndex) Search(ctx context.Context, query ports.SearchQuery) ([]domain.SearchDocument, error) {
	if err := x.guard(); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var sb strings.Builder
	var args []interface{}

	if query.Text != "" {
		sb.WriteString("SELECT " + selectColumns + `
			FROM conversations_fts f
			JOIN conversations c ON f.rowid = c.rowid
			WHERE f MATCH ?`)
		args = append(args, escapeFTSQuery(query.Text))
	} else {
		sb.WriteString("SELECT " + selectColumns + `
			FROM conversations c
			WHERE 1 = 1`)
	}

	if query.UserID != "" {
		sb.WriteString(" AND c.user_id = ?")
		args = append(args, query.UserID)
	}
	if query.Intent != "" {
		sb.WriteString(" AND c.intent = ?")
		args = append(args, query.Intent)
	}
	if query.Resolved != nil {
		sb.WriteString(" AND c.resolved = ?")
		args = append(args, boolToInt(*query.Resolved))
	}

	sb.WriteString(" ORDER BY c.indexed_at DESC LIMIT ?")
	args = append(args, limit)

	rows, err := x.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, domain.NewStorageError("search", query.Text, err)
	}
	defer rows.Close()

	var docs []domain.SearchDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, domain.NewStorageError("search", query.Text, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("search", query.Text, err)
	}

	return docs, nil
}

func (x *LibSQLIndex) Aggregate(ctx context.Context, userID string) (*domain.UserStatistics, error) {
	if err := x.guard(); err != nil {
		return nil, err
	}

	stats := &domain.UserStatistics{IntentCounts: make(map[string]int64)}

	totals := `SELECT COUNT(*), COALESCE(SUM(resolved), 0) FROM conversations`
	intents := `SELECT intent, COUNT(*) FROM conversations WHERE intent != ''`
	var args []interface{}
	if userID != "" {
		totals += " WHERE user_id = ?"
		intents += " AND user_id = ?"
		args = append(args, userID)
	}

	if err := x.db.QueryRowContext(ctx, totals, args...).Scan(&stats.TotalConversations, &stats.ResolvedCount); err != nil {
		return nil, domain.NewStorageError("aggregate", userID, err)
	}

	rows, err := x.db.QueryContext(ctx, intents+" GROUP BY intent", args...)
	if err != nil {
		return nil, domain.NewStorageError("aggregate", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var intent string
		var count int64
		if err := rows.Scan(&intent, &count); err != nil {
			return nil, domain.NewStorageError("aggregate", userID, err)
		}
		stats.IntentCounts[intent] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("aggregate", userID, err)
	}

	return stats, nil
}

func (x *LibSQLIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true

	if err := x.db.Close(); err != nil {
		return domain.NewStorageError("close", "", err)
	}
	return nil
}

func (x *LibSQLIndex) guard() error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return domain.ErrClosed
	}
	return nil
}

func scanDocument(rows *sql.Rows) (domain.SearchDocument, error) {
	var doc domain.SearchDocument
	var resolved, awaiting int
	var historyJSON, indexedAt string

	err := rows.Scan(&doc.ThreadID, &doc.SessionID, &doc.UserID, &doc.Intent,
		&doc.OrderID, &resolved, &awaiting, &doc.Transcript, &historyJSON,
		&doc.TraceID, &indexedAt)
	if err != nil {
		return doc, err
	}

	doc.Resolved = resolved != 0
	doc.AwaitingInput = awaiting != 0
	if historyJSON != "" {
		if err := xjson.Unmarshal([]byte(historyJSON), &doc.History); err != nil {
			return doc, err
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, indexedAt); err == nil {
		doc.IndexedAt = ts
	}

	return doc, nil
}

// escapeFTSQuery neutralizes FTS5 operators in user input. Quotes are
// doubled and multi-word input is wrapped as a phrase query.
func escapeFTSQuery(query string) string {
	escaped := strings.ReplaceAll(query, `"`, `""`)
	if strings.ContainsAny(escaped, " \t") {
		return `"` + escaped + `"`
	}
	return escaped
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
