package ports

import "context"

// PolishResult distinguishes an enriched reply from a draft fallback so
// callers and tests can assert which path was taken.
type PolishResult struct {
	Reply    string
	Polished bool
}

// Polisher rewrites a draft reply for tone. Implementations may call out
// externally; errors and timeouts are recovered by the caller with the
// unmodified draft.
type Polisher interface {
	Polish(ctx context.Context, userMessage, draft string) (PolishResult, error)
}
