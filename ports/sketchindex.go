package ports

import (
	"context"

	"datamart/domain/dataset"
)

// SketchIndex is the external similarity-sketch service (C5). Errors
// from either operation are treated by callers as non-fatal warnings.
type SketchIndex interface {
	// Index pushes the full values of one text column for permanent
	// indexing under (datasetID, columnName).
	Index(ctx context.Context, datasetID dataset.Id, columnName string, values []string) error

	// Sketch computes (without persisting) a sketch for each of the
	// given text columns, used in search mode to attach profile.lazo[].
	Sketch(ctx context.Context, columns map[string][]string) (map[string]dataset.Lazo, error)

	// Overlap estimates the Jaccard similarity between a probe column's
	// sketch and an already-indexed column, used by the Augment Matcher.
	Overlap(ctx context.Context, probe dataset.Lazo, datasetID dataset.Id, columnName string) (float64, error)

	// Purge drops every indexed sketch for datasetID, used by the
	// standalone purge tool (§9 "Purge tool" design note).
	Purge(ctx context.Context, datasetID dataset.Id) error
}
