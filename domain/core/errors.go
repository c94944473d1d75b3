package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrSourceNotFound  = fmt.Errorf("%w: source", ErrNotFound)

	// Validation / request errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidQuery    = fmt.Errorf("%w: query must carry 'query' or 'data'", ErrInvalidArgument)

	// Transient errors, eligible for retry with backoff
	ErrTransient          = errors.New("transient failure")
	ErrCatalogUnavailable = fmt.Errorf("%w: catalog unavailable", ErrTransient)
	ErrBrokerDisconnected = fmt.Errorf("%w: broker disconnected", ErrTransient)

	// Source protocol errors (per-dataset, non-fatal to the pass)
	ErrSourceProtocol = errors.New("source protocol error")

	// Profiling errors, routed to failed_profile and not retried
	ErrProfilingFailed = errors.New("profiling failed")

	// Sketch-index errors, logged as warnings only
	ErrSketchIndexFailed = errors.New("sketch index error")
)

// NewDatasetNotFoundError builds a dataset-not-found error carrying the id.
func NewDatasetNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
}

// NewSourceProtocolError wraps a source-specific decoding/schema failure.
func NewSourceProtocolError(sourceIdentifier string, cause error) error {
	return fmt.Errorf("%w: source %s: %v", ErrSourceProtocol, sourceIdentifier, cause)
}

// NewProfilingError wraps a failure encountered while profiling a dataset.
func NewProfilingError(datasetID string, cause error) error {
	return fmt.Errorf("%w: dataset %s: %v", ErrProfilingFailed, datasetID, cause)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidArgumentError(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsProfilingError(err error) bool {
	return errors.Is(err, ErrProfilingFailed)
}
