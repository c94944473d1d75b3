// Package profiler implements the Profiler (C3): orchestrates the Type
// Classifier and Coverage Analyzer over a table and emits a Profile.
package profiler

import (
	"context"
	"encoding/csv"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"datamart/adapters/coverage"
	"datamart/domain/classifier"
	"datamart/domain/core"
	"datamart/domain/dataset"
	"datamart/internal"
	"datamart/ports"
)

// SampleSeed is the deterministic seed used when uniform row sampling is
// required above SizeThresholdBytes. Determinism tests must run below
// the threshold so sampling never triggers.
const SampleSeed = 42

// SizeThresholdBytes is the §4.3 step 1 cutoff above which the loaded
// rows are uniformly subsampled.
const SizeThresholdBytes = 50_000_000

const sampleRowLimit = 5000

// Mode selects whether the Profiler indexes text columns for later
// retrieval (Mode Index) or requests sketches back inline for an
// immediate probe comparison (Mode Search).
type Mode int

const (
	ModeIndex Mode = iota
	ModeSearch
)

// Profiler orchestrates classification and coverage computation over a
// CSV table, optionally consulting a GeoData resolver and Sketch Index.
type Profiler struct {
	Geo    classifier.GeoResolver
	Sketch ports.SketchIndex
}

func New(geo classifier.GeoResolver, sketch ports.SketchIndex) *Profiler {
	return &Profiler{Geo: geo, Sketch: sketch}
}

// Input bundles everything Profile needs about one dataset.
type Input struct {
	ID          dataset.Id
	Descriptor  dataset.DatasetDescriptor
	Reader      io.Reader
	SizeBytes   int64
	Mode        Mode
}

// Profile runs the full C3 pipeline and returns a populated Profile.
func (p *Profiler) Profile(ctx context.Context, in Input) (*dataset.Profile, error) {
	header, rows, nbRows, err := readTable(in.Reader, in.SizeBytes)
	if err != nil {
		return nil, err
	}

	columns := reconcileColumns(header, in.Descriptor.Columns)

	textColumns := make(map[string][]string)
	var latColumns, lonColumns []string
	columnValues := make(map[string][]string, len(header))
	for i, name := range header {
		values := make([]string, len(rows))
		for r, row := range rows {
			if i < len(row) {
				values[r] = row[i]
			}
		}
		columnValues[name] = values
	}

	for i := range columns {
		name := columns[i].Name
		values := columnValues[name]

		result := classifier.Classify(name, values, nil, p.Geo)
		columns[i].StructuralType = result.StructuralType
		mergeSemanticTypes(&columns[i].SemanticTypes, result.SemanticTypes)
		columns[i].UncleanValuesRatio = result.UncleanValuesRatio
		columns[i].MissingValuesRatio = result.MissingValuesRatio
		columns[i].NumDistinctValues = result.NumDistinctValues
		columns[i].DistinctValues = result.DistinctValues
		columns[i].TemporalResolution = result.TemporalResolution

		switch result.StructuralType {
		case dataset.StructuralInteger, dataset.StructuralFloat:
			nums := parseFloats(values)
			mean, stddev := coverage.MeanStdDev(nums)
			columns[i].Mean = &mean
			columns[i].StdDev = &stddev

			switch {
			case columns[i].SemanticTypes.Has(dataset.SemanticLatitude):
				latColumns = append(latColumns, name)
			case columns[i].SemanticTypes.Has(dataset.SemanticLongitude):
				lonColumns = append(lonColumns, name)
			default:
				columns[i].Coverage = coverage.NumericRanges(nums)
			}

		case dataset.StructuralText:
			if !columns[i].SemanticTypes.Has(dataset.SemanticDateTime) {
				textColumns[name] = values
			}
		}

		if columns[i].SemanticTypes.Has(dataset.SemanticDateTime) && len(result.ParsedDateTimes) > 0 {
			epochs := make([]float64, len(result.ParsedDateTimes))
			for j, t := range result.ParsedDateTimes {
				epochs[j] = float64(t.Unix())
			}
			mean, stddev := coverage.MeanStdDev(epochs)
			columns[i].Mean = &mean
			columns[i].StdDev = &stddev

			coarse := make([]float64, len(epochs))
			for j, e := range epochs {
				coarse[j] = float64(int64(e) / 3600 * 3600)
			}
			columns[i].Coverage = coverage.NumericRanges(coarse)
		}
	}

	profile := dataset.NewProfile(in.ID, in.Descriptor)
	profile.Columns = columns
	profile.NbRows = nbRows
	profile.SizeBytes = in.SizeBytes

	profile.SpatialCoverage = pairLatLong(latColumns, lonColumns, columnValues)

	if p.Sketch != nil {
		p.runSketching(ctx, in, columns, textColumns, profile)
	}

	return profile, nil
}

func mergeSemanticTypes(dst *dataset.SemanticSet, src dataset.SemanticSet) {
	for _, t := range src.Tags() {
		dst.Add(t)
	}
}

// reconcileColumns preserves descriptor-hinted columns when the hint's
// width matches the CSV header; otherwise starts from N empty slots with
// names taken from the header, which always wins (§3 invariants, §4.3
// step 2).
func reconcileColumns(header []string, hinted []dataset.ColumnProfile) []dataset.ColumnProfile {
	columns := make([]dataset.ColumnProfile, len(header))
	useHint := len(hinted) == len(header)
	for i, name := range header {
		if useHint {
			columns[i] = hinted[i]
		}
		columns[i].Name = name
	}
	return columns
}

func parseFloats(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// readTable loads every CSV row into memory and counts them; above
// SizeThresholdBytes it then keeps a uniform random sample of those rows
// at ratio SizeThresholdBytes/size, always keeping the header. The table
// is read in full in both cases; there is no separate streaming count
// pass.
func readTable(r io.Reader, sizeBytes int64) (header []string, rows [][]string, nbRows int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err = cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, 0, nil
		}
		return nil, nil, 0, err
	}

	var all [][]string
	for {
		row, readErr := cr.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, nil, 0, readErr
		}
		all = append(all, row)
	}
	nbRows = len(all)

	if sizeBytes <= SizeThresholdBytes {
		return header, clampSample(all), nbRows, nil
	}

	ratio := float64(SizeThresholdBytes) / float64(sizeBytes)
	rng := rand.New(rand.NewPCG(SampleSeed, SampleSeed))
	sampled := make([][]string, 0, int(float64(len(all))*ratio)+1)
	for _, row := range all {
		if rng.Float64() <= ratio {
			sampled = append(sampled, row)
		}
	}
	return header, clampSample(sampled), nbRows, nil
}

// clampSample bounds the rows actually passed through the classifier and
// coverage analyzer; mean/stddev/coverage are computed from this sample,
// matching the original profiler's sampling contract.
func clampSample(rows [][]string) [][]string {
	if len(rows) <= sampleRowLimit {
		return rows
	}
	return rows[:sampleRowLimit]
}

// pairLatLong implements §4.3 step 7: normalize lat/lon column names by
// stripping "latitude"/"lat" and "longitude"/"long", pair columns whose
// normalized names collide, filter to valid rows, and cluster.
func pairLatLong(latColumns, lonColumns []string, values map[string][]string) []dataset.SpatialCoverage {
	latByNorm := make(map[string]string)
	for _, c := range latColumns {
		latByNorm[normalizeLatName(c)] = c
	}
	lonByNorm := make(map[string]string)
	for _, c := range lonColumns {
		lonByNorm[normalizeLonName(c)] = c
	}

	var out []dataset.SpatialCoverage
	for norm, latCol := range latByNorm {
		lonCol, ok := lonByNorm[norm]
		if !ok {
			continue
		}
		lats := values[latCol]
		lons := values[lonCol]
		var points []coverage.LatLon
		n := len(lats)
		if len(lons) < n {
			n = len(lons)
		}
		for i := 0; i < n; i++ {
			lat, err1 := strconv.ParseFloat(strings.TrimSpace(lats[i]), 64)
			lon, err2 := strconv.ParseFloat(strings.TrimSpace(lons[i]), 64)
			if err1 != nil || err2 != nil {
				continue
			}
			if lat == 0 || lon == 0 {
				continue
			}
			if lat <= -90 || lat >= 90 || lon <= -180 || lon >= 180 {
				continue
			}
			points = append(points, coverage.LatLon{Lat: lat, Lon: lon})
		}
		if len(points) < 2 {
			continue
		}
		out = append(out, dataset.SpatialCoverage{
			LatColumn: latCol,
			LonColumn: lonCol,
			Ranges:    coverage.SpatialRanges(points),
		})
	}
	return out
}

func normalizeLatName(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, "latitude", "")
	n = strings.ReplaceAll(n, "lat", "")
	return strings.Trim(n, "_- ")
}

func normalizeLonName(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, "longitude", "")
	n = strings.ReplaceAll(n, "long", "")
	return strings.Trim(n, "_- ")
}

// runSketching implements §4.3 step 8. Sketch-index failures are logged
// as warnings; the Profiler never fails the whole profile over a
// sketch-index problem.
func (p *Profiler) runSketching(ctx context.Context, in Input, columns []dataset.ColumnProfile, textColumns map[string][]string, profile *dataset.Profile) {
	switch in.Mode {
	case ModeIndex:
		for name, values := range textColumns {
			if err := p.Sketch.Index(ctx, in.ID, name, values); err != nil {
				internal.DefaultLogger.Warn("sketch index: column %s of %s: %v", name, in.ID, err)
			}
		}
	case ModeSearch:
		sketches, err := p.Sketch.Sketch(ctx, textColumns)
		if err != nil {
			internal.DefaultLogger.Warn("sketch index: sketching %s: %v", in.ID, err)
			return
		}
		for name, lazo := range sketches {
			lazo.Name = name
			profile.Lazo = append(profile.Lazo, lazo)
		}
	}
}

// ComputeSha1 hashes a full byte stream for the pending-store digest gate.
func ComputeSha1(data []byte) core.Sha1Digest {
	return core.NewSha1Digest(data)
}
