// Package memory is an in-process Catalog and PendingStore used by unit
// tests, sharing the same query.Evaluate nested-collection matching
// semantics as the Postgres adapter.
package memory

import (
	"context"
	"sync"

	"datamart/domain/core"
	"datamart/domain/dataset"
	"datamart/ports"
	"datamart/query"
)

type Catalog struct {
	mu       sync.RWMutex
	profiles map[dataset.Id]*dataset.Profile
}

func NewCatalog() *Catalog {
	return &Catalog{profiles: make(map[dataset.Id]*dataset.Profile)}
}

func (c *Catalog) Put(_ context.Context, profile *dataset.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *profile
	c.profiles[profile.ID] = &cp
	return nil
}

func (c *Catalog) Get(_ context.Context, id dataset.Id) (*dataset.Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	if !ok {
		return nil, core.NewDatasetNotFoundError(string(id))
	}
	cp := *p
	return &cp, nil
}

func (c *Catalog) Delete(_ context.Context, id dataset.Id) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, id)
	return nil
}

func (c *Catalog) Scan(_ context.Context, filter ports.ScanFilter) ([]*dataset.Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*dataset.Profile
	for _, p := range c.profiles {
		if filter.SourceIdentifier != "" && p.Materialize.Identifier != filter.SourceIdentifier {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (c *Catalog) Search(_ context.Context, tree *query.Tree) ([]ports.SearchHit, error) {
	profiles, _ := c.Scan(context.Background(), ports.ScanFilter{})
	hits := query.Evaluate(profiles, tree)
	out := make([]ports.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = ports.SearchHit{ID: h.ID, Score: h.Score, Source: h.Source}
	}
	return out, nil
}

// PendingStore is the in-process PendingStore used alongside Catalog.
type PendingStore struct {
	mu      sync.RWMutex
	records map[string]dataset.PendingRecord
}

func NewPendingStore() *PendingStore {
	return &PendingStore{records: make(map[string]dataset.PendingRecord)}
}

func (s *PendingStore) Get(_ context.Context, sourceIdentifier string) (dataset.PendingRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[sourceIdentifier]
	return r, ok, nil
}

func (s *PendingStore) Put(_ context.Context, record dataset.PendingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SourceIdentifier] = record
	return nil
}
