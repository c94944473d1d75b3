// Package materializer re-fetches a dataset's raw bytes over HTTP from
// its Materialize record, backing the /download endpoint when no
// direct_url redirect applies.
package materializer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"datamart/domain/dataset"
)

// HTTPMaterializer fetches bytes from Materialize.DirectURL (when set)
// or a source-specific URL built from Materialize.Identifier /
// SourceLocalID via a caller-supplied URL template.
type HTTPMaterializer struct {
	Client      *http.Client
	URLTemplate func(materialize dataset.Materialize) string
}

func New(urlTemplate func(dataset.Materialize) string) *HTTPMaterializer {
	return &HTTPMaterializer{
		Client:      &http.Client{Timeout: 5 * time.Minute},
		URLTemplate: urlTemplate,
	}
}

func (m *HTTPMaterializer) Fetch(ctx context.Context, materialize dataset.Materialize) (io.ReadCloser, error) {
	url := materialize.DirectURL
	if url == "" {
		if m.URLTemplate == nil {
			return nil, fmt.Errorf("materializer: no direct_url and no URL template for %s", materialize.Identifier)
		}
		url = m.URLTemplate(materialize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("materializer: build request: %w", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("materializer: fetch failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("materializer: http %d fetching %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}
