package dataset

import (
	"encoding/json"
	"regexp"

	"datamart/domain/core"
)

// Id is a stable, globally unique identifier of the form
// "<source-identifier>.<source-local-id>". Non-ID-safe characters in the
// source identifier are collapsed to "-".
type Id string

var idUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// EncodeSourceIdentifier collapses non-ID-safe characters to "-", matching
// the convention incremental sources use when deriving their identifier
// (e.g. a catalog domain name) into an id-safe component.
func EncodeSourceIdentifier(raw string) string {
	return idUnsafeChars.ReplaceAllString(raw, "-")
}

// NewId builds a DatasetId from a source identifier and the source's own
// local id for the dataset.
func NewId(sourceIdentifier, sourceLocalID string) Id {
	return Id(EncodeSourceIdentifier(sourceIdentifier) + "." + sourceLocalID)
}

func (id Id) String() string { return string(id) }
func (id Id) IsEmpty() bool  { return id == "" }

// StructuralType is the mutually-exclusive base shape of a column's values.
type StructuralType string

const (
	StructuralMissingData StructuralType = "missing_data"
	StructuralInteger     StructuralType = "integer"
	StructuralFloat       StructuralType = "float"
	StructuralText        StructuralType = "text"
	StructuralGeoPoint    StructuralType = "geo_point"
	StructuralGeoPolygon  StructuralType = "geo_polygon"
)

// SemanticType is an additional, non-exclusive tag layered on top of a
// column's StructuralType.
type SemanticType string

const (
	SemanticBoolean     SemanticType = "boolean"
	SemanticDateTime    SemanticType = "datetime"
	SemanticCategorical SemanticType = "categorical"
	SemanticLatitude    SemanticType = "latitude"
	SemanticLongitude   SemanticType = "longitude"
	SemanticAdmin       SemanticType = "admin"
	SemanticIdentifier  SemanticType = "identifier"
	SemanticFreeText    SemanticType = "free_text"
)

// TemporalResolution describes how coarse a DateTime column's parsed
// instants are.
type TemporalResolution string

const (
	ResolutionYear  TemporalResolution = "year"
	ResolutionMonth TemporalResolution = "month"
	ResolutionDay   TemporalResolution = "day"
)

// Interval is a closed numeric or temporal (epoch-seconds) range.
type Interval struct {
	Gte float64 `json:"gte"`
	Lte float64 `json:"lte"`
}

// SemanticSet is a small, order-preserving set of SemanticType tags.
type SemanticSet struct {
	tags []SemanticType
}

func NewSemanticSet(tags ...SemanticType) SemanticSet {
	s := SemanticSet{}
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

func (s *SemanticSet) Add(t SemanticType) {
	if s.Has(t) {
		return
	}
	s.tags = append(s.tags, t)
}

func (s SemanticSet) Has(t SemanticType) bool {
	for _, existing := range s.tags {
		if existing == t {
			return true
		}
	}
	return false
}

func (s SemanticSet) Tags() []SemanticType {
	out := make([]SemanticType, len(s.tags))
	copy(out, s.tags)
	return out
}

func (s SemanticSet) MarshalJSON() ([]byte, error) {
	if s.tags == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.tags)
}

func (s *SemanticSet) UnmarshalJSON(data []byte) error {
	var tags []SemanticType
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	s.tags = tags
	return nil
}

// ColumnProfile is the per-column output of the Type Classifier and
// Coverage Analyzer, as stored on a Profile.
type ColumnProfile struct {
	Name                string             `json:"name"`
	StructuralType      StructuralType     `json:"structural_type"`
	SemanticTypes       SemanticSet        `json:"semantic_types"`
	UncleanValuesRatio  float64            `json:"unclean_values_ratio"`
	MissingValuesRatio  float64            `json:"missing_values_ratio,omitempty"`
	NumDistinctValues   *int               `json:"num_distinct_values,omitempty"`
	DistinctValues      []string           `json:"-"`
	Mean                *float64           `json:"mean,omitempty"`
	StdDev              *float64           `json:"stddev,omitempty"`
	Coverage            []Interval         `json:"coverage,omitempty"`
	TemporalResolution  TemporalResolution `json:"temporal_resolution,omitempty"`
}

// Envelope is an axis-aligned 2-D spatial bounding box expressed as
// NW/SE corners in [lon, lat] order.
type Envelope struct {
	NW [2]float64 `json:"nw"`
	SE [2]float64 `json:"se"`
}

// Area returns the (possibly zero) area of the envelope in degrees².
func (e Envelope) Area() float64 {
	width := e.SE[0] - e.NW[0]
	height := e.NW[1] - e.SE[1]
	if width < 0 {
		width = -width
	}
	if height < 0 {
		height = -height
	}
	return width * height
}

// SpatialCoverage pairs a latitude/longitude column and the envelopes
// that summarize their joint footprint.
type SpatialCoverage struct {
	LatColumn string     `json:"lat_column"`
	LonColumn string     `json:"lon_column"`
	Ranges    []Envelope `json:"ranges"`
}

// Lazo is a Lazo-style similarity sketch attached to a text column once
// the Sketch Index has returned it in search mode.
type Lazo struct {
	Name          string   `json:"name"`
	NPermutations int      `json:"n_permutations"`
	HashValues    []uint64 `json:"hash_values"`
	Cardinality   int      `json:"cardinality"`
}

// Materialize is the opaque record a Source supplies telling the Catalog
// how to re-fetch raw dataset bytes, plus the fields the Discovery Loop
// and Work Dispatcher read out of it directly.
type Materialize struct {
	Identifier    string `json:"identifier"`
	SourceLocalID string `json:"source_local_id"`
	DirectURL     string `json:"direct_url,omitempty"`
	Updated       string `json:"updated,omitempty"`
	Extra         map[string]interface{} `json:"-"`
}

// DatasetDescriptor is what a Source returns describing one dataset,
// before it has been profiled.
type DatasetDescriptor struct {
	SourceLocalID string           `json:"source_local_id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	SourceURL     string           `json:"source_url,omitempty"`
	LastModified  *core.Timestamp  `json:"last_modified,omitempty"`
	Materialize   Materialize      `json:"materialize"`
	Columns       []ColumnProfile  `json:"columns,omitempty"`
}

// Profile is the Catalog document: a dataset's full structural/semantic
// schema and coverage footprint.
type Profile struct {
	ID              Id                `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	NbRows          int               `json:"nb_rows"`
	SizeBytes       int64             `json:"size_bytes"`
	Columns         []ColumnProfile   `json:"columns"`
	SpatialCoverage []SpatialCoverage `json:"spatial_coverage,omitempty"`
	Materialize     Materialize       `json:"materialize"`
	Lazo            []Lazo            `json:"lazo,omitempty"`
	IndexedAt       core.Timestamp    `json:"indexed_at"`
}

// Column looks up a column by name, returning (column, true) if present.
func (p *Profile) Column(name string) (*ColumnProfile, bool) {
	for i := range p.Columns {
		if p.Columns[i].Name == name {
			return &p.Columns[i], true
		}
	}
	return nil, false
}

// NewProfile builds an empty Profile ready to be populated by the Profiler.
func NewProfile(id Id, descriptor DatasetDescriptor) *Profile {
	return &Profile{
		ID:          id,
		Name:        descriptor.Name,
		Description: descriptor.Description,
		Materialize: descriptor.Materialize,
		IndexedAt:   core.Now(),
	}
}

// PendingRecord is the per-source change-detection cursor: the digest of
// the last successfully ingested bulk dump.
type PendingRecord struct {
	SourceIdentifier string          `json:"source_identifier"`
	Sha1             core.Sha1Digest `json:"sha1"`
}
