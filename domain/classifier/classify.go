// Package classifier implements the per-column structural and semantic
// type inference described for the Type Classifier: a single pass over a
// sample of string cell values produces pattern-match counters, which are
// then resolved into a StructuralType plus a SemanticSet.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"datamart/domain/dataset"
)

var (
	reInt     = regexp.MustCompile(`^[+-]?[0-9]+(\.0*)?$`)
	reFloat   = regexp.MustCompile(`^[+-]?(?:[0-9]+\.[0-9]*|\.[0-9]+)(?:[Ee][0-9]+)?$`)
	rePoint   = regexp.MustCompile(`^POINT ?\(-?\d{1,3}\.\d{1,15} -?\d{1,3}\.\d{1,15}\)$`)
	rePolygon = regexp.MustCompile(`^POLYGON ?\(\(.+\)\)$`)
	reGeoName = regexp.MustCompile(`^[\pL .,'\-]+\(-?\d{1,3}\.\d+, ?-?\d{1,3}\.\d+\)$`)
)

var boolValues = map[string]bool{
	"0": true, "1": true, "true": true, "false": true,
	"y": true, "n": true, "yes": true, "no": true,
}

// ColumnHint is the human-in-the-loop override: when supplied, Classify
// skips inference entirely and only computes metadata consistent with
// the provided types.
type ColumnHint struct {
	StructuralType dataset.StructuralType
	SemanticTypes  []dataset.SemanticType
}

// GeoResolver resolves free-text values to administrative-area names. A
// nil resolver simply never contributes the Admin semantic tag.
type GeoResolver interface {
	ResolveNames(samples []string) []*string
}

// Result is the tagged-union plus semantic-tag-set produced by Classify.
type Result struct {
	StructuralType     dataset.StructuralType
	SemanticTypes      dataset.SemanticSet
	UncleanValuesRatio float64
	MissingValuesRatio float64
	NumDistinctValues  *int
	DistinctValues     []string
	ParsedDateTimes    []time.Time
	TemporalResolution dataset.TemporalResolution
}

type counters struct {
	n, empty, intc, floatc, point, polygon, geoCombined, text, boolc int
}

func countSample(samples []string) counters {
	var c counters
	c.n = len(samples)
	for _, raw := range samples {
		v := strings.TrimSpace(raw)
		if v == "" {
			c.empty++
			continue
		}
		if reInt.MatchString(v) {
			c.intc++
		}
		if reFloat.MatchString(v) {
			c.floatc++
		}
		if rePoint.MatchString(v) {
			c.point++
		}
		if rePolygon.MatchString(v) {
			c.polygon++
		}
		if reGeoName.MatchString(v) {
			c.geoCombined++
		}
		if whitespaceCount(v) >= 4 {
			c.text++
		}
		if boolValues[strings.ToLower(v)] {
			c.boolc++
		}
	}
	return c
}

func whitespaceCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func threshold(n, empty int) int {
	t := int(0.98 * float64(n-empty))
	if t < 1 {
		t = 1
	}
	return t
}

// Classify runs the single-pass counting classifier over samples for one
// column, honoring an optional human-in-the-loop hint.
func Classify(columnName string, samples []string, hint *ColumnHint, geo GeoResolver) Result {
	if hint != nil {
		return classifyWithHint(columnName, samples, *hint)
	}

	c := countSample(samples)
	res := Result{SemanticTypes: dataset.NewSemanticSet()}

	if c.n == 0 || c.empty == c.n {
		res.StructuralType = dataset.StructuralMissingData
		res.MissingValuesRatio = ratio(c.empty, c.n)
		return res
	}

	t := threshold(c.n, c.empty)
	switch {
	case c.intc >= t:
		res.StructuralType = dataset.StructuralInteger
		res.UncleanValuesRatio = 1 - ratio(c.empty+c.intc, c.n)
	case c.intc+c.floatc >= t:
		res.StructuralType = dataset.StructuralFloat
		res.UncleanValuesRatio = 1 - ratio(c.empty+c.intc+c.floatc, c.n)
	case c.point >= t || c.geoCombined >= t:
		res.StructuralType = dataset.StructuralGeoPoint
		res.UncleanValuesRatio = 1 - ratio(c.empty+c.point+c.geoCombined, c.n)
	case c.polygon >= t:
		res.StructuralType = dataset.StructuralGeoPolygon
		res.UncleanValuesRatio = 1 - ratio(c.empty+c.polygon, c.n)
	default:
		res.StructuralType = dataset.StructuralText
		res.UncleanValuesRatio = 0
	}

	if c.empty > 0 {
		res.MissingValuesRatio = ratio(c.empty, c.n)
	}

	augmentSemantics(columnName, samples, c, t, &res, geo)

	// Generic date parsing always attempted, independent of structural type.
	applyDateTimeTagging(columnName, samples, t, &res)

	return res
}

func classifyWithHint(columnName string, samples []string, hint ColumnHint) Result {
	c := countSample(samples)
	res := Result{
		StructuralType: hint.StructuralType,
		SemanticTypes:  dataset.NewSemanticSet(hint.SemanticTypes...),
	}
	if c.empty > 0 {
		res.MissingValuesRatio = ratio(c.empty, c.n)
	}
	switch hint.StructuralType {
	case dataset.StructuralInteger:
		res.UncleanValuesRatio = 1 - ratio(c.empty+c.intc, c.n)
	case dataset.StructuralFloat:
		res.UncleanValuesRatio = 1 - ratio(c.empty+c.intc+c.floatc, c.n)
	}
	if res.SemanticTypes.Has(dataset.SemanticCategorical) {
		res.DistinctValues = distinctValues(samples)
		n := len(res.DistinctValues)
		res.NumDistinctValues = &n
	}
	return res
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

func augmentSemantics(columnName string, samples []string, c counters, t int, res *Result, geo GeoResolver) {
	if c.boolc >= t {
		res.SemanticTypes.Add(dataset.SemanticBoolean)
	}

	name := strings.ToLower(strings.TrimSpace(columnName))

	switch res.StructuralType {
	case dataset.StructuralText:
		resolved := 0
		if geo != nil {
			names := geo.ResolveNames(samples)
			for _, n := range names {
				if n != nil {
					resolved++
				}
			}
			if len(samples) > 0 && float64(resolved)/float64(len(samples)) > 0.70 {
				res.SemanticTypes.Add(dataset.SemanticAdmin)
				return
			}
		}
		if c.text >= t {
			res.SemanticTypes.Add(dataset.SemanticFreeText)
			return
		}
		distinct := distinctValues(samples)
		maxCategorical := 0.10 * float64(c.n-c.empty)
		if float64(len(distinct)) <= maxCategorical || res.SemanticTypes.Has(dataset.SemanticBoolean) {
			res.SemanticTypes.Add(dataset.SemanticCategorical)
			res.DistinctValues = distinct
			n := len(distinct)
			res.NumDistinctValues = &n
		}

	case dataset.StructuralInteger:
		if strings.HasPrefix(name, "id") || strings.HasSuffix(name, "id") ||
			strings.HasPrefix(name, "identifier") || strings.HasSuffix(name, "identifier") ||
			strings.HasPrefix(name, "index") || strings.HasSuffix(name, "index") {
			res.SemanticTypes.Add(dataset.SemanticIdentifier)
		}
		distinct := distinctValues(samples)
		n := len(distinct)
		res.NumDistinctValues = &n

		if name == "year" {
			parsed := 0
			for _, raw := range samples {
				v := strings.TrimSpace(raw)
				if v == "" {
					continue
				}
				if _, err := strconv.Atoi(v); err == nil && len(v) == 4 {
					parsed++
				}
			}
			if parsed >= t {
				res.SemanticTypes.Add(dataset.SemanticDateTime)
				res.TemporalResolution = dataset.ResolutionYear
			}
		}

	case dataset.StructuralFloat:
		latCandidates, lonCandidates := 0, 0
		for _, raw := range samples {
			v := strings.TrimSpace(raw)
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			if f >= -180 && f <= 180 {
				lonCandidates++
				if f >= -90 && f <= 90 {
					latCandidates++
				}
			}
		}
		if latCandidates >= t && strings.Contains(name, "lat") {
			res.SemanticTypes.Add(dataset.SemanticLatitude)
		}
		if lonCandidates >= t && strings.Contains(name, "lon") {
			res.SemanticTypes.Add(dataset.SemanticLongitude)
		}
	}
}

func distinctValues(samples []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range samples {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// applyDateTimeTagging attempts generic, locale-tolerant date parsing
// across all samples; if at least t values parse, the column is tagged
// DateTime. If the structural type was Integer but the values are in
// fact dates (e.g. YYYYMMDD), the structural type is downgraded to Text.
func applyDateTimeTagging(columnName string, samples []string, t int, res *Result) {
	parsed := make([]time.Time, 0, len(samples))
	resolution := dataset.ResolutionDay
	ok := 0
	for _, raw := range samples {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		tm, res2, found := parseDate(v)
		if !found {
			continue
		}
		ok++
		parsed = append(parsed, tm)
		resolution = res2
	}
	if ok < t {
		return
	}
	res.SemanticTypes.Add(dataset.SemanticDateTime)
	res.ParsedDateTimes = parsed
	if res.TemporalResolution == "" {
		res.TemporalResolution = resolution
	}
	if res.StructuralType == dataset.StructuralInteger && looksLikeCompactDate(samples) {
		res.StructuralType = dataset.StructuralText
		res.UncleanValuesRatio = 0
	}
}

func looksLikeCompactDate(samples []string) bool {
	for _, raw := range samples {
		v := strings.TrimSpace(raw)
		if len(v) == 8 {
			if _, err := time.Parse("20060102", v); err == nil {
				return true
			}
		}
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"20060102",
	"2006-01",
	"2006",
}

func parseDate(v string) (time.Time, dataset.TemporalResolution, bool) {
	for _, layout := range dateLayouts {
		tm, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		switch layout {
		case "2006":
			return tm, dataset.ResolutionYear, true
		case "2006-01":
			return tm, dataset.ResolutionMonth, true
		default:
			return tm, dataset.ResolutionDay, true
		}
	}
	return time.Time{}, "", false
}
