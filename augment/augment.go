// Package augment implements the Augment Matcher (C7): given a probe
// Profile, finds Catalog datasets joinable or unionable with it.
package augment

import (
	"context"
	"sort"
	"strings"

	"datamart/domain/dataset"
	"datamart/ports"
	"datamart/query"
)

// JoinThreshold is the minimum column-pair score for a joinable
// candidate (§4.7).
const JoinThreshold = 0.4

// JoinColumnPair is one matched column pair contributing to a joinable
// candidate's score.
type JoinColumnPair struct {
	ProbeColumn   string  `json:"probe_column"`
	CatalogColumn string  `json:"catalog_column"`
	Score         float64 `json:"score"`
}

// Candidate is one scored augmentation result. Exactly one of
// JoinColumns or UnionColumns is populated, matching the "join_columns
// | union_columns" shape from §4.7.
type Candidate struct {
	ID           dataset.Id       `json:"id"`
	Score        float64          `json:"score"`
	Source       string           `json:"source"`
	JoinColumns  []JoinColumnPair `json:"join_columns,omitempty"`
	UnionColumns []string         `json:"union_columns,omitempty"`
}

// Matcher augments a probe Profile against the Catalog.
type Matcher struct {
	Catalog ports.Catalog
	Sketch  ports.SketchIndex
}

func New(catalog ports.Catalog, sketch ports.SketchIndex) *Matcher {
	return &Matcher{Catalog: catalog, Sketch: sketch}
}

// Augment finds join and union candidates for probe, applying filter
// (if non-nil) as a conjunctive pre-filter over the Catalog (§4.6
// interplay described in §4.7), merging both hit types and sorting by
// score descending.
func (m *Matcher) Augment(ctx context.Context, probe *dataset.Profile, filter *query.Tree) ([]Candidate, error) {
	candidates, err := m.candidatePool(ctx, filter)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, c := range candidates {
		if c.ID == probe.ID {
			continue
		}
		if join, ok := m.joinCandidate(ctx, probe, c); ok {
			out = append(out, join)
		}
		if union, ok := unionCandidate(probe, c); ok {
			out = append(out, union)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (m *Matcher) candidatePool(ctx context.Context, filter *query.Tree) ([]*dataset.Profile, error) {
	if filter == nil || filter.IsEmpty() {
		return m.Catalog.Scan(ctx, ports.ScanFilter{})
	}
	hits, err := m.Catalog.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*dataset.Profile, 0, len(hits))
	for _, h := range hits {
		p, err := m.Catalog.Get(ctx, h.ID)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// joinCandidate scores probe's numeric/temporal columns against c's
// overlapping coverage, and probe's text columns against c's indexed
// sketches via the Sketch Index, combining per-column-pair scores and
// keeping pairs at or above JoinThreshold.
func (m *Matcher) joinCandidate(ctx context.Context, probe, c *dataset.Profile) (Candidate, bool) {
	var pairs []JoinColumnPair

	for _, pc := range probe.Columns {
		switch pc.StructuralType {
		case dataset.StructuralInteger, dataset.StructuralFloat:
			for _, cc := range c.Columns {
				if cc.StructuralType != dataset.StructuralInteger && cc.StructuralType != dataset.StructuralFloat {
					continue
				}
				s := coverageOverlapScore(pc.Coverage, cc.Coverage)
				if s >= JoinThreshold {
					pairs = append(pairs, JoinColumnPair{ProbeColumn: pc.Name, CatalogColumn: cc.Name, Score: s})
				}
			}
		case dataset.StructuralText:
			if m.Sketch == nil {
				continue
			}
			probeLazo, ok := lazoFor(probe, pc.Name)
			if !ok {
				continue
			}
			for _, cc := range c.Columns {
				if cc.StructuralType != dataset.StructuralText {
					continue
				}
				s, err := m.Sketch.Overlap(ctx, probeLazo, c.ID, cc.Name)
				if err != nil {
					continue
				}
				if s >= JoinThreshold {
					pairs = append(pairs, JoinColumnPair{ProbeColumn: pc.Name, CatalogColumn: cc.Name, Score: s})
				}
			}
		}
	}

	if len(pairs) == 0 {
		return Candidate{}, false
	}
	return Candidate{ID: c.ID, Score: bestPairScore(pairs), Source: c.Materialize.Identifier, JoinColumns: pairs}, true
}

func bestPairScore(pairs []JoinColumnPair) float64 {
	best := 0.0
	for _, p := range pairs {
		if p.Score > best {
			best = p.Score
		}
	}
	return best
}

func lazoFor(p *dataset.Profile, columnName string) (dataset.Lazo, bool) {
	for _, l := range p.Lazo {
		if l.Name == columnName {
			return l, true
		}
	}
	return dataset.Lazo{}, false
}

// coverageOverlapScore is the fraction of the probe interval's span
// covered by the union of overlapping catalog intervals, 0 when either
// side has no coverage.
func coverageOverlapScore(probe, candidate []dataset.Interval) float64 {
	if len(probe) == 0 || len(candidate) == 0 {
		return 0
	}
	var total, overlap float64
	for _, pv := range probe {
		span := pv.Lte - pv.Gte
		if span <= 0 {
			continue
		}
		total += span
		for _, cv := range candidate {
			lo := max64(pv.Gte, cv.Gte)
			hi := min64(pv.Lte, cv.Lte)
			if hi > lo {
				overlap += hi - lo
			}
		}
	}
	if total == 0 {
		return 0
	}
	score := overlap / total
	if score > 1 {
		score = 1
	}
	return score
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// unionCandidate scores c by the fraction of probe columns that align
// with one of c's columns by name and semantic/structural compatibility
// (§4.7 "Unionable candidates"), rejecting candidates below
// JoinThreshold the same way joinCandidate does.
func unionCandidate(probe, c *dataset.Profile) (Candidate, bool) {
	if len(probe.Columns) == 0 {
		return Candidate{}, false
	}

	var aligned []string
	for _, pc := range probe.Columns {
		for _, cc := range c.Columns {
			if columnsAlign(pc, cc) {
				aligned = append(aligned, pc.Name)
				break
			}
		}
	}

	if len(aligned) == 0 {
		return Candidate{}, false
	}
	score := float64(len(aligned)) / float64(len(probe.Columns))
	if score < JoinThreshold {
		return Candidate{}, false
	}
	return Candidate{ID: c.ID, Score: score, Source: c.Materialize.Identifier, UnionColumns: aligned}, true
}

func columnsAlign(a, b dataset.ColumnProfile) bool {
	if a.StructuralType != b.StructuralType {
		return false
	}
	if !strings.EqualFold(normalizeColumnName(a.Name), normalizeColumnName(b.Name)) {
		return false
	}
	return semanticSetsOverlap(a.SemanticTypes, b.SemanticTypes)
}

func semanticSetsOverlap(a, b dataset.SemanticSet) bool {
	aTags := a.Tags()
	if len(aTags) == 0 {
		return true
	}
	for _, t := range aTags {
		if b.Has(t) {
			return true
		}
	}
	return false
}

func normalizeColumnName(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, "_", "")
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, " ", "")
	return n
}
