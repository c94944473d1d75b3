// Package sketchindex is an HTTP client for the external similarity-
// sketch service (C5), following the same bare net/http request/response
// shape as the other outbound HTTP clients in this module: no ecosystem
// HTTP client library covers an arbitrary internal JSON-over-HTTP
// service, so this stays on net/http by design.
package sketchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"datamart/domain/dataset"
	"datamart/ports"
)

// Client implements ports.SketchIndex against an HTTP service exposing
// /index, /sketch, and /overlap endpoints.
type Client struct {
	BaseURL string
	Timeout time.Duration
}

func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, Timeout: 30 * time.Second}
}

type indexRequest struct {
	DatasetID string   `json:"dataset_id"`
	Column    string   `json:"column"`
	Values    []string `json:"values"`
}

func (c *Client) Index(ctx context.Context, datasetID dataset.Id, columnName string, values []string) error {
	body := indexRequest{DatasetID: string(datasetID), Column: columnName, Values: values}
	_, err := c.post(ctx, "/index", body, nil)
	return err
}

type sketchRequest struct {
	Columns map[string][]string `json:"columns"`
}

type sketchResponse struct {
	Sketches map[string]dataset.Lazo `json:"sketches"`
}

func (c *Client) Sketch(ctx context.Context, columns map[string][]string) (map[string]dataset.Lazo, error) {
	var resp sketchResponse
	if _, err := c.post(ctx, "/sketch", sketchRequest{Columns: columns}, &resp); err != nil {
		return nil, err
	}
	return resp.Sketches, nil
}

type overlapRequest struct {
	Probe     dataset.Lazo `json:"probe"`
	DatasetID string       `json:"dataset_id"`
	Column    string       `json:"column"`
}

type overlapResponse struct {
	Score float64 `json:"score"`
}

func (c *Client) Overlap(ctx context.Context, probe dataset.Lazo, datasetID dataset.Id, columnName string) (float64, error) {
	var resp overlapResponse
	req := overlapRequest{Probe: probe, DatasetID: string(datasetID), Column: columnName}
	if _, err := c.post(ctx, "/overlap", req, &resp); err != nil {
		return 0, err
	}
	return resp.Score, nil
}

type purgeRequest struct {
	DatasetID string `json:"dataset_id"`
}

func (c *Client) Purge(ctx context.Context, datasetID dataset.Id) error {
	_, err := c.post(ctx, "/purge", purgeRequest{DatasetID: string(datasetID)}, nil)
	return err
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.Timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sketch index request failed: %w", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sketch index http %d: %s", resp.StatusCode, string(respRaw))
	}

	if out != nil {
		if err := json.Unmarshal(respRaw, out); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return respRaw, nil
}
