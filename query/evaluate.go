package query

import (
	"strings"

	"datamart/domain/dataset"
)

// Hit is one scored match of a compiled Tree against a Profile.
type Hit struct {
	ID     dataset.Id
	Score  float64
	Source string
}

// Evaluate matches a compiled Tree against a set of profiles, returning
// a Hit per Profile that satisfies every Must clause, scored by the
// fraction of Should clauses it additionally satisfies. Both Catalog
// adapters (in-memory and Postgres) share this evaluator so nested
// per-row matching semantics stay identical regardless of storage.
func Evaluate(profiles []*dataset.Profile, tree *Tree) []Hit {
	var hits []Hit
	for _, p := range profiles {
		if tree != nil && !matchAll(p, tree.Must) {
			continue
		}
		hits = append(hits, Hit{ID: p.ID, Score: score(p, tree), Source: p.Materialize.Identifier})
	}
	return hits
}

func matchAll(p *dataset.Profile, nodes []Node) bool {
	for _, n := range nodes {
		if !match(p, n) {
			return false
		}
	}
	return true
}

func match(p *dataset.Profile, n Node) bool {
	switch n.Kind {
	case KindMust:
		return matchAll(p, n.Children)
	case KindShould:
		if len(n.Children) == 0 {
			return true
		}
		for _, c := range n.Children {
			if match(p, c) {
				return true
			}
		}
		return false
	case KindNestedMatch:
		return matchNested(p, n)
	case KindRangeIntersect:
		return matchRange(p, n)
	case KindShapeIntersect:
		return matchShape(p, n)
	case KindMatchAll:
		return true
	default:
		return true
	}
}

func matchNested(p *dataset.Profile, n Node) bool {
	switch n.Field {
	case "name":
		return containsAny(p.Name, n.Terms)
	case "description":
		return containsAny(p.Description, n.Terms)
	case "columns.name":
		for _, col := range p.Columns {
			if containsAny(col.Name, n.Terms) {
				return true
			}
		}
		return false
	case "structural_type":
		for _, col := range p.Columns {
			for _, term := range n.Terms {
				if string(col.StructuralType) == term {
					return true
				}
			}
		}
		return false
	case "semantic_types":
		for _, col := range p.Columns {
			for _, term := range n.Terms {
				if col.SemanticTypes.Has(dataset.SemanticType(term)) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func containsAny(haystack string, terms []string) bool {
	lower := strings.ToLower(haystack)
	for _, t := range terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// matchRange intersects a temporal_entity's requested range against only
// the DateTime-tagged columns' coverage, so a numeric column whose
// epoch-scale coverage happens to overlap cannot satisfy a temporal
// clause meant for an unrelated column.
func matchRange(p *dataset.Profile, n Node) bool {
	for _, col := range p.Columns {
		if !col.SemanticTypes.Has(dataset.SemanticDateTime) {
			continue
		}
		for _, iv := range col.Coverage {
			if iv.Gte <= n.Lte && iv.Lte >= n.Gte {
				return true
			}
		}
	}
	return false
}

func matchShape(p *dataset.Profile, n Node) bool {
	for _, sc := range p.SpatialCoverage {
		for _, env := range sc.Ranges {
			if envelopesIntersect(env, n.NW, n.SE) {
				return true
			}
		}
	}
	return false
}

func envelopesIntersect(env dataset.Envelope, nw, se [2]float64) bool {
	envMinLon, envMaxLon := env.NW[0], env.SE[0]
	envMaxLat, envMinLat := env.NW[1], env.SE[1]
	qMinLon, qMaxLon := nw[0], se[0]
	qMaxLat, qMinLat := nw[1], se[1]
	return envMinLon <= qMaxLon && envMaxLon >= qMinLon && envMinLat <= qMaxLat && envMaxLat >= qMinLat
}

func score(p *dataset.Profile, tree *Tree) float64 {
	if tree == nil || len(tree.Should) == 0 {
		return 1.0
	}
	matched := 0
	for _, n := range tree.Should {
		if n.Kind == KindMatchAll {
			matched++
			continue
		}
		if match(p, n) {
			matched++
		}
	}
	return float64(matched) / float64(len(tree.Should))
}
