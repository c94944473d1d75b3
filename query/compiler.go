package query

import (
	"time"

	"datamart/domain/core"
)

// DatasetClause is the §4.6 "dataset" query section: free-text about, or
// explicit name/description term lists.
type DatasetClause struct {
	About       string   `json:"about,omitempty"`
	Name        []string `json:"name,omitempty"`
	Description []string `json:"description,omitempty"`
}

// Variable is one entry of required_variables or desired_variables.
type Variable struct {
	Kind string `json:"kind"`

	// temporal_entity
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`

	// geospatial_entity: [lon1, lat1, lon2, lat2], any two opposite
	// corners; normalized to NW/SE by the compiler.
	BoundingBox *[4]float64 `json:"bounding_box,omitempty"`

	// generic_entity
	Name          []string `json:"name,omitempty"`
	StructuralType []string `json:"structural_type,omitempty"`
	SemanticTypes  []string `json:"semantic_types,omitempty"`
}

// Body is the full JSON query payload.
type Body struct {
	Dataset           *DatasetClause `json:"dataset,omitempty"`
	RequiredVariables []Variable     `json:"required_variables,omitempty"`
	DesiredVariables  []Variable     `json:"desired_variables,omitempty"`
}

// Compile translates a query Body into a Tree. Unknown variable kinds
// are silently skipped, matching the original search service's behavior.
func Compile(body *Body) *Tree {
	tree := &Tree{}
	if body == nil {
		return tree
	}

	if body.Dataset != nil {
		if node, ok := compileDatasetClause(*body.Dataset); ok {
			tree.Must = append(tree.Must, node)
		}
	}

	for _, v := range body.RequiredVariables {
		if node, ok := compileVariable(v); ok {
			tree.Must = append(tree.Must, node)
		}
	}

	for _, v := range body.DesiredVariables {
		if node, ok := compileVariable(v); ok {
			tree.Should = append(tree.Should, node)
		}
	}
	if len(tree.Should) == 0 {
		tree.Should = append(tree.Should, Node{Kind: KindMatchAll})
	}

	return tree
}

func compileDatasetClause(d DatasetClause) (Node, bool) {
	var children []Node
	if d.About != "" {
		children = append(children, Node{Kind: KindShould, Children: []Node{
			{Kind: KindNestedMatch, Field: "name", Terms: []string{d.About}},
			{Kind: KindNestedMatch, Field: "description", Terms: []string{d.About}},
			{Kind: KindNestedMatch, Field: "columns.name", Terms: []string{d.About}},
		}})
	}
	if len(d.Name) > 0 {
		children = append(children, Node{Kind: KindNestedMatch, Field: "name", Terms: d.Name})
	}
	if len(d.Description) > 0 {
		children = append(children, Node{Kind: KindNestedMatch, Field: "description", Terms: d.Description})
	}
	if len(children) == 0 {
		return Node{}, false
	}
	return Node{Kind: KindMust, Children: children}, true
}

func compileVariable(v Variable) (Node, bool) {
	switch v.Kind {
	case "temporal_entity":
		return compileTemporalEntity(v), true
	case "geospatial_entity":
		if v.BoundingBox == nil {
			return Node{Kind: KindNestedMatch, Field: "semantic_types", Terms: []string{"datetime"}}, true
		}
		return compileGeospatialEntity(*v.BoundingBox), true
	case "generic_entity":
		return compileGenericEntity(v), true
	default:
		return Node{}, false
	}
}

func compileTemporalEntity(v Variable) Node {
	children := []Node{
		{Kind: KindNestedMatch, Field: "semantic_types", Terms: []string{"datetime"}},
	}
	if v.Start != nil || v.End != nil {
		start := parseTimeOrEpoch(v.Start)
		end := parseTimeOrNow(v.End)
		children = append(children, Node{
			Kind: KindRangeIntersect,
			Gte:  float64(start.Unix()),
			Lte:  float64(end.Unix()),
		})
	}
	return Node{Kind: KindMust, Children: children}
}

func parseTimeOrEpoch(s *string) time.Time {
	if s == nil {
		return time.Unix(0, 0).UTC()
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return t
	}
	return time.Unix(0, 0).UTC()
}

func parseTimeOrNow(s *string) time.Time {
	if s == nil {
		return core.Now().Time()
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return t
	}
	return core.Now().Time()
}

// compileGeospatialEntity normalizes the supplied bounding box corners so
// that longitude1 < longitude2 and latitude1 > latitude2 (NW, SE), per §4.6.
func compileGeospatialEntity(box [4]float64) Node {
	lon1, lat1, lon2, lat2 := box[0], box[1], box[2], box[3]
	if lon1 > lon2 {
		lon1, lon2 = lon2, lon1
	}
	if lat1 < lat2 {
		lat1, lat2 = lat2, lat1
	}
	return Node{
		Kind: KindShapeIntersect,
		NW:   [2]float64{lon1, lat1},
		SE:   [2]float64{lon2, lat2},
	}
}

func compileGenericEntity(v Variable) Node {
	var facets []Node
	if len(v.Name) > 0 {
		facets = append(facets, Node{Kind: KindNestedMatch, Field: "columns.name", Terms: v.Name})
	}
	if len(v.StructuralType) > 0 {
		facets = append(facets, Node{Kind: KindNestedMatch, Field: "structural_type", Terms: v.StructuralType})
	}
	if len(v.SemanticTypes) > 0 {
		facets = append(facets, Node{Kind: KindNestedMatch, Field: "semantic_types", Terms: v.SemanticTypes})
	}
	return Node{Kind: KindMust, Children: facets}
}

// ResolveLegacyDatasetID extracts a D3M-style dataset id shortcut from a
// query's metadata.about block, when present — a convenience the search
// service's original implementation offered alongside the structured
// query grammar above.
func ResolveLegacyDatasetID(raw map[string]interface{}) (string, bool) {
	meta, ok := raw["metadata"].(map[string]interface{})
	if !ok {
		return "", false
	}
	about, ok := meta["about"].(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := about["datasetID"].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
