package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/domain/dataset"
)

func TestClassifyInteger(t *testing.T) {
	res := Classify("count", []string{"1", "2", "3", "42", "100"}, nil, nil)
	assert.Equal(t, dataset.StructuralInteger, res.StructuralType)
	assert.Zero(t, res.UncleanValuesRatio)
}

func TestClassifyFloatWithUncleanValues(t *testing.T) {
	res := Classify("value", []string{"1.5", "2.75", "3.25", "bogus"}, nil, nil)
	assert.Equal(t, dataset.StructuralFloat, res.StructuralType)
	assert.Greater(t, res.UncleanValuesRatio, 0.0)
}

func TestClassifyMissingDataAllEmpty(t *testing.T) {
	res := Classify("col", []string{"", "", ""}, nil, nil)
	assert.Equal(t, dataset.StructuralMissingData, res.StructuralType)
	assert.Equal(t, 1.0, res.MissingValuesRatio)
}

func TestClassifyIdentifierSemanticFromColumnName(t *testing.T) {
	res := Classify("record_id", []string{"1", "2", "3", "4", "5"}, nil, nil)
	assert.Equal(t, dataset.StructuralInteger, res.StructuralType)
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticIdentifier))
}

func TestClassifyCategoricalLowCardinalityText(t *testing.T) {
	colors := []string{"red", "blue", "green"}
	samples := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		samples = append(samples, colors[i%len(colors)])
	}
	res := Classify("color", samples, nil, nil)
	assert.Equal(t, dataset.StructuralText, res.StructuralType)
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticCategorical))
	require.NotNil(t, res.NumDistinctValues)
	assert.Equal(t, 3, *res.NumDistinctValues)
}

func TestClassifyFreeTextHighWhitespace(t *testing.T) {
	samples := []string{
		"a long sentence with many words in it today",
		"another rather long description of something",
		"yet another free text sample with several words",
	}
	res := Classify("notes", samples, nil, nil)
	assert.Equal(t, dataset.StructuralText, res.StructuralType)
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticFreeText))
}

func TestClassifyBooleanZeroOne(t *testing.T) {
	res := Classify("flag", []string{"0", "1", "1", "0", "1"}, nil, nil)
	assert.Equal(t, dataset.StructuralInteger, res.StructuralType)
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticBoolean))
}

func TestClassifyDateTimeTagging(t *testing.T) {
	samples := []string{"2024-01-01", "2024-02-15", "2024-03-30", "2024-04-12"}
	res := Classify("observed_at", samples, nil, nil)
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticDateTime))
	assert.Equal(t, dataset.ResolutionDay, res.TemporalResolution)
	assert.Len(t, res.ParsedDateTimes, 4)
}

func TestClassifyCompactDateDowngradesIntegerToText(t *testing.T) {
	samples := []string{"20240101", "20240215", "20240330", "20240412"}
	res := Classify("date_code", samples, nil, nil)
	assert.Equal(t, dataset.StructuralText, res.StructuralType)
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticDateTime))
}

func TestClassifyLatitudeLongitudeByColumnName(t *testing.T) {
	lat := Classify("latitude", []string{"40.7", "41.2", "39.9", "42.0"}, nil, nil)
	assert.True(t, lat.SemanticTypes.Has(dataset.SemanticLatitude))

	lon := Classify("longitude", []string{"-74.0", "-73.5", "-75.1", "-72.9"}, nil, nil)
	assert.True(t, lon.SemanticTypes.Has(dataset.SemanticLongitude))
}

type fakeGeoResolver struct{ matchRatio float64 }

func (f fakeGeoResolver) ResolveNames(samples []string) []*string {
	out := make([]*string, len(samples))
	resolved := int(float64(len(samples)) * f.matchRatio)
	for i := 0; i < resolved && i < len(samples); i++ {
		v := "Resolved"
		out[i] = &v
	}
	return out
}

func TestClassifyAdminSemanticViaGeoResolver(t *testing.T) {
	samples := []string{"France", "Germany", "Italy", "Spain", "Portugal"}
	res := Classify("country", samples, nil, fakeGeoResolver{matchRatio: 1.0})
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticAdmin))
}

func TestClassifyWithHintHonorsStructuralTypeOverride(t *testing.T) {
	hint := &ColumnHint{StructuralType: dataset.StructuralText, SemanticTypes: []dataset.SemanticType{dataset.SemanticCategorical}}
	res := Classify("col", []string{"a", "b", "a", "b"}, hint, nil)
	assert.Equal(t, dataset.StructuralText, res.StructuralType)
	assert.True(t, res.SemanticTypes.Has(dataset.SemanticCategorical))
	require.NotNil(t, res.NumDistinctValues)
	assert.Equal(t, 2, *res.NumDistinctValues)
}
