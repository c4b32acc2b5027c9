package ports

import (
	"context"

	"github.com/imniteen/loom/internal/domain"
)

// SearchQuery filters a full-text query over indexed conversations. Zero
// values mean "no filter"; Resolved is a pointer so false is filterable.
type SearchQuery struct {
	Text     string
	UserID   string
	Intent   string
	Resolved *bool
	Limit    int
}

// SearchIndex is the best-effort secondary store. Callers must tolerate
// its absence; failures here never affect primary durability.
type SearchIndex interface {
	Setup(ctx context.Context) error
	Upsert(ctx context.Context, doc domain.SearchDocument) error
	Search(ctx context.Context, query SearchQuery) ([]domain.SearchDocument, error)
	Aggregate(ctx context.Context, userID string) (*domain.UserStatistics, error)
	Close() error
}
