// Package coverage implements the Coverage Analyzer: deterministic
// k-means clustering of a numeric, temporal, or spatial vector, reduced
// to a small set of summarizing ranges.
package coverage

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"datamart/domain/dataset"
)

// MaxRanges bounds the number of coverage intervals or spatial envelopes
// ever returned for one column or lat/lon pair.
const MaxRanges = 3

const maxFiniteMagnitude = 3.4e38

const spatialInflationDelta = 0.0001

// NumericRanges clusters values into at most MaxRanges groups and returns
// the 5th-to-95th percentile interval of each nonempty cluster, in
// cluster order.
func NumericRanges(values []float64) []dataset.Interval {
	clean := filterFinite(values)
	if len(clean) == 0 {
		return nil
	}

	k := MaxRanges
	if len(clean) < k {
		k = len(clean)
	}
	clusters := kmeans1D(clean, k)

	ranges := make([]dataset.Interval, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) == 0 {
			continue
		}
		sort.Float64s(cluster)
		lo, err := stats.Percentile(cluster, 5)
		if err != nil {
			lo = cluster[0]
		}
		hi, _ := stats.Percentile(cluster, 95)
		if lo > hi {
			lo, hi = hi, lo
		}
		ranges = append(ranges, dataset.Interval{Gte: lo, Lte: hi})
		if len(ranges) == MaxRanges {
			break
		}
	}
	return ranges
}

// MeanStdDev reports the mean and population standard deviation of
// values, ignoring NaN/Inf entries, mirroring how the Profiler computes
// mean/stddev for Integer, Float, and DateTime (epoch-second) columns.
func MeanStdDev(values []float64) (mean, stddev float64) {
	clean := filterFinite(values)
	if len(clean) == 0 {
		return 0, 0
	}
	mean = floats.Sum(clean) / float64(len(clean))
	var sumSq float64
	for _, v := range clean {
		d := v - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / float64(len(clean)))
	return mean, stddev
}

// LatLon is one (lat, lon) sample point.
type LatLon struct {
	Lat, Lon float64
}

// SpatialRanges clusters (lat, lon) pairs and independently reduces each
// axis to its 5th-to-95th percentile band, emitting an envelope per
// cluster. Degenerate (zero-width or zero-height) envelopes are inflated
// by ±spatialInflationDelta degrees so every emitted envelope has
// strictly positive area.
func SpatialRanges(points []LatLon) []dataset.Envelope {
	if len(points) == 0 {
		return nil
	}

	k := MaxRanges
	if len(points) < k {
		k = len(points)
	}
	clusters := kmeansLatLon(points, k)

	envelopes := make([]dataset.Envelope, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) == 0 {
			continue
		}
		lats := make([]float64, len(cluster))
		lons := make([]float64, len(cluster))
		for i, p := range cluster {
			lats[i] = p.Lat
			lons[i] = p.Lon
		}
		sort.Float64s(lats)
		sort.Float64s(lons)

		minLat, errLat := stats.Percentile(lats, 5)
		if errLat != nil {
			minLat = lats[0]
		}
		maxLat, _ := stats.Percentile(lats, 95)
		minLon, errLon := stats.Percentile(lons, 5)
		if errLon != nil {
			minLon = lons[0]
		}
		maxLon, _ := stats.Percentile(lons, 95)

		if minLat == maxLat {
			minLat -= spatialInflationDelta
			maxLat += spatialInflationDelta
		}
		if minLon == maxLon {
			minLon -= spatialInflationDelta
			maxLon += spatialInflationDelta
		}

		envelopes = append(envelopes, dataset.Envelope{
			NW: [2]float64{minLon, maxLat},
			SE: [2]float64{maxLon, minLat},
		})
		if len(envelopes) == MaxRanges {
			break
		}
	}
	return envelopes
}

func filterFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if math.Abs(v) > maxFiniteMagnitude {
			continue
		}
		out = append(out, v)
	}
	return out
}

// kmeans1D is a deterministic 1-D k-means: centroids are seeded from
// evenly spaced order statistics (not randomly), so the same input always
// produces the same partition.
func kmeans1D(values []float64, k int) [][]float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	centroids := seedCentroids(sorted, k)
	assign := make([]int, len(values))

	for iter := 0; iter < 25; iter++ {
		changed := false
		for i, v := range values {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := math.Abs(v - centroid)
				if d < bestDist {
					bestDist, best = d, c
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[assign[i]] += v
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}
	}

	clusters := make([][]float64, k)
	for i, v := range values {
		clusters[assign[i]] = append(clusters[assign[i]], v)
	}
	sort.Slice(clusters, func(i, j int) bool {
		return centroidOf(clusters[i]) < centroidOf(clusters[j])
	})
	return clusters
}

func centroidOf(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	return floats.Sum(values) / float64(len(values))
}

func seedCentroids(sorted []float64, k int) []float64 {
	centroids := make([]float64, k)
	if k == 1 {
		centroids[0] = sorted[len(sorted)/2]
		return centroids
	}
	for i := 0; i < k; i++ {
		idx := i * (len(sorted) - 1) / (k - 1)
		centroids[i] = sorted[idx]
	}
	return centroids
}

func kmeansLatLon(points []LatLon, k int) [][]LatLon {
	centroids := make([]LatLon, k)
	sorted := append([]LatLon(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lat < sorted[j].Lat })
	for i := 0; i < k; i++ {
		idx := 0
		if k > 1 {
			idx = i * (len(sorted) - 1) / (k - 1)
		} else {
			idx = len(sorted) / 2
		}
		centroids[i] = sorted[idx]
	}

	assign := make([]int, len(points))
	for iter := 0; iter < 25; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				dLat := p.Lat - centroid.Lat
				dLon := p.Lon - centroid.Lon
				d := dLat*dLat + dLon*dLon
				if d < bestDist {
					bestDist, best = d, c
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		sumLat := make([]float64, k)
		sumLon := make([]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			sumLat[assign[i]] += p.Lat
			sumLon[assign[i]] += p.Lon
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = LatLon{Lat: sumLat[c] / float64(counts[c]), Lon: sumLon[c] / float64(counts[c])}
			}
		}
	}

	clusters := make([][]LatLon, k)
	for i, p := range points {
		clusters[assign[i]] = append(clusters[assign[i]], p)
	}
	sort.Slice(clusters, func(i, j int) bool {
		return centroidLatOf(clusters[i]) < centroidLatOf(clusters[j])
	})
	return clusters
}

func centroidLatOf(points []LatLon) float64 {
	if len(points) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, p := range points {
		sum += p.Lat
	}
	return sum / float64(len(points))
}
