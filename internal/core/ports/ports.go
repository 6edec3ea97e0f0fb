package ports

import (
	"context"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// SourceAdapter is implemented by every feed adapter. Fetch returns the
// already-materialized, normalized documents for one run; partial failures
// (404s, malformed rows) are skipped inside the adapter. A returned error
// means the source was unavailable entirely, which callers treat as zero
// documents, never as a fatal condition.
type SourceAdapter interface {
	Name() domain.SourceName
	Fetch(ctx context.Context) ([]domain.SourceDocument, error)
}

// DatasetRepository persists the materialized dataset snapshot.
type DatasetRepository interface {
	SaveSnapshot(ctx context.Context, records []domain.UnifiedRecord) error
	GetByID(ctx context.Context, cveID string) (*domain.UnifiedRecord, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
