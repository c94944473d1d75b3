package ports

import (
	"context"

	"datamart/domain/dataset"
	"datamart/query"
)

// ScanFilter narrows a Scan call, e.g. to all documents for one source.
type ScanFilter struct {
	SourceIdentifier string
}

// SearchHit is one result of a compiled query-tree evaluation.
type SearchHit struct {
	ID     dataset.Id `json:"id"`
	Score  float64    `json:"score"`
	Source string     `json:"source"`
}

// Catalog is the persistent document store of Profiles (C4). The
// columns array and spatial_coverage.ranges are queryable as nested
// collections: a query over columns matches per-row, not across rows.
type Catalog interface {
	Put(ctx context.Context, profile *dataset.Profile) error
	Get(ctx context.Context, id dataset.Id) (*dataset.Profile, error)
	Delete(ctx context.Context, id dataset.Id) error
	Scan(ctx context.Context, filter ScanFilter) ([]*dataset.Profile, error)
	Search(ctx context.Context, tree *query.Tree) ([]SearchHit, error)
}

// PendingStore is the per-source change-detection cursor.
type PendingStore interface {
	Get(ctx context.Context, sourceIdentifier string) (dataset.PendingRecord, bool, error)
	Put(ctx context.Context, record dataset.PendingRecord) error
}
