// Package query implements the Query Compiler (C6): translating a JSON
// search request into a structured lookup tree that both Catalog
// adapters evaluate in process with Evaluate.
package query

// NodeKind discriminates the tree node variants below.
type NodeKind string

const (
	KindMust           NodeKind = "must"
	KindShould         NodeKind = "should"
	KindNestedMatch    NodeKind = "nested_match"
	KindRangeIntersect NodeKind = "range_intersect"
	KindShapeIntersect NodeKind = "shape_intersect"
	KindMatchAll       NodeKind = "match_all"
)

// Tree is the root of a compiled query: a base clause (must conjunctions)
// plus scoring clauses (should disjunctions, contributing score but not
// filtering).
type Tree struct {
	Must   []Node `json:"must,omitempty"`
	Should []Node `json:"should,omitempty"`
}

// Node is one compiled predicate. Exactly the fields relevant to Kind
// are populated; Evaluate switches on Kind.
type Node struct {
	Kind NodeKind `json:"kind"`

	// KindMust / KindShould: nested sub-clauses, at least one of which
	// must match for Should, all of which must match for Must.
	Children []Node `json:"children,omitempty"`

	// KindNestedMatch: match against a field of the nested "columns"
	// collection (or top-level dataset.name/description).
	Field string   `json:"field,omitempty"`
	Terms []string `json:"terms,omitempty"`

	// KindRangeIntersect: a coverage interval must intersect [Gte, Lte].
	Gte float64 `json:"gte,omitempty"`
	Lte float64 `json:"lte,omitempty"`

	// KindShapeIntersect: a spatial envelope must intersect this box,
	// expressed as NW/SE corners in [lon, lat] order.
	NW [2]float64 `json:"nw,omitempty"`
	SE [2]float64 `json:"se,omitempty"`
}

// IsEmpty reports whether the tree carries no filtering or scoring
// clauses at all (the degenerate match-everything query).
func (t *Tree) IsEmpty() bool {
	return t == nil || (len(t.Must) == 0 && len(t.Should) == 0)
}
