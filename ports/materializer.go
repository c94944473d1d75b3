package ports

import (
	"context"
	"io"

	"datamart/domain/dataset"
)

// Materializer re-fetches a dataset's raw bytes from its Materialize
// record, backing the /download HTTP endpoint when no direct_url is
// present to redirect to.
type Materializer interface {
	Fetch(ctx context.Context, materialize dataset.Materialize) (io.ReadCloser, error)
}
