package ports

import (
	"context"
	"io"
	"time"

	"datamart/domain/dataset"
)

// BulkDumpSource is a Source shaped as a single tarball containing every
// dataset, plus a separate metadata listing (§4.8 "Bulk-dump source").
type BulkDumpSource interface {
	Identifier() string

	// OpenDump streams the current dump bytes. The caller hashes the
	// stream while writing it to a temp file.
	OpenDump(ctx context.Context) (io.ReadCloser, error)

	// Listing fetches the metadata listing describing every dataset
	// currently present in the dump.
	Listing(ctx context.Context) ([]dataset.DatasetDescriptor, error)

	// ExtractedCSVPath returns the path to one dataset's CSV inside an
	// already-extracted dump directory.
	ExtractedCSVPath(extractedDir string, descriptor dataset.DatasetDescriptor) string
}

// IncrementalSource is a Source shaped as a per-dataset listing carrying
// an updatedAt timestamp (§4.8 "Incremental source").
type IncrementalSource interface {
	Identifier() string
	CheckInterval() time.Duration

	// List returns the current set of dataset descriptors, each carrying
	// an UpdatedAt in Materialize.Updated.
	List(ctx context.Context) ([]dataset.DatasetDescriptor, error)

	// Fetch retrieves raw CSV bytes for one descriptor.
	Fetch(ctx context.Context, descriptor dataset.DatasetDescriptor) (io.ReadCloser, error)
}
