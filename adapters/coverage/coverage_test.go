package coverage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRangesEmptyInput(t *testing.T) {
	assert.Nil(t, NumericRanges(nil))
}

func TestNumericRangesBoundedByMaxRanges(t *testing.T) {
	values := make([]float64, 0, 300)
	for i := 0; i < 100; i++ {
		values = append(values, float64(i))
		values = append(values, float64(i+1000))
		values = append(values, float64(i+5000))
	}
	ranges := NumericRanges(values)
	require.NotEmpty(t, ranges)
	assert.LessOrEqual(t, len(ranges), MaxRanges)
	for _, r := range ranges {
		assert.LessOrEqual(t, r.Gte, r.Lte)
	}
}

func TestNumericRangesFiltersNonFiniteValues(t *testing.T) {
	values := []float64{1, 2, 3, math.NaN(), math.Inf(1), math.Inf(-1)}
	ranges := NumericRanges(values)
	require.NotEmpty(t, ranges)
}

func TestNumericRangesAllNonFiniteReturnsNil(t *testing.T) {
	values := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
	assert.Nil(t, NumericRanges(values))
}

func TestMeanStdDevUniformValues(t *testing.T) {
	mean, stddev := MeanStdDev([]float64{5, 5, 5, 5})
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 0.0, stddev)
}

func TestMeanStdDevEmptyInput(t *testing.T) {
	mean, stddev := MeanStdDev(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, stddev)
}

func TestSpatialRangesEmptyInput(t *testing.T) {
	assert.Nil(t, SpatialRanges(nil))
}

func TestSpatialRangesInflatesDegenerateEnvelope(t *testing.T) {
	points := []LatLon{
		{Lat: 40.0, Lon: -74.0},
		{Lat: 40.0, Lon: -74.0},
		{Lat: 40.0, Lon: -74.0},
	}
	envelopes := SpatialRanges(points)
	require.Len(t, envelopes, 1)
	env := envelopes[0]
	assert.Greater(t, env.SE[0], env.NW[0])
	assert.Greater(t, env.NW[1], env.SE[1])
}

func TestSpatialRangesBoundedByMaxRanges(t *testing.T) {
	points := make([]LatLon, 0, 300)
	for i := 0; i < 100; i++ {
		points = append(points, LatLon{Lat: float64(i % 90), Lon: float64(i % 180)})
		points = append(points, LatLon{Lat: float64(-(i % 90)), Lon: float64(-(i % 180))})
		points = append(points, LatLon{Lat: float64(i%45) + 10, Lon: float64(i%90) + 20})
	}
	envelopes := SpatialRanges(points)
	require.NotEmpty(t, envelopes)
	assert.LessOrEqual(t, len(envelopes), MaxRanges)
}
