package augment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/adapters/catalog/memory"
	"datamart/domain/dataset"
)

func ival(gte, lte float64) dataset.Interval { return dataset.Interval{Gte: gte, Lte: lte} }

func TestAugmentJoinCandidateAboveThreshold(t *testing.T) {
	cat := memory.NewCatalog()
	ctx := context.Background()

	candidate := dataset.NewProfile(dataset.NewId("noaa", "weather"), dataset.DatasetDescriptor{
		Name: "weather",
		Materialize: dataset.Materialize{Identifier: "noaa", SourceLocalID: "weather"},
	})
	candidate.Columns = []dataset.ColumnProfile{
		{Name: "temp_c", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(-10, 40)}},
	}
	require.NoError(t, cat.Put(ctx, candidate))

	probe := dataset.NewProfile(dataset.NewId("probe", "p1"), dataset.DatasetDescriptor{Name: "probe"})
	probe.Columns = []dataset.ColumnProfile{
		{Name: "temperature", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(0, 30)}},
	}

	m := New(cat, nil)
	results, err := m.Augment(ctx, probe, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, candidate.ID, results[0].ID)
	require.Len(t, results[0].JoinColumns, 1)
	assert.Equal(t, "temperature", results[0].JoinColumns[0].ProbeColumn)
	assert.Equal(t, "temp_c", results[0].JoinColumns[0].CatalogColumn)
	assert.GreaterOrEqual(t, results[0].Score, JoinThreshold)
}

func TestAugmentJoinCandidateBelowThresholdExcluded(t *testing.T) {
	cat := memory.NewCatalog()
	ctx := context.Background()

	candidate := dataset.NewProfile(dataset.NewId("noaa", "weather"), dataset.DatasetDescriptor{
		Materialize: dataset.Materialize{Identifier: "noaa", SourceLocalID: "weather"},
	})
	candidate.Columns = []dataset.ColumnProfile{
		{Name: "temp_c", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(100, 200)}},
	}
	require.NoError(t, cat.Put(ctx, candidate))

	probe := dataset.NewProfile(dataset.NewId("probe", "p1"), dataset.DatasetDescriptor{})
	probe.Columns = []dataset.ColumnProfile{
		{Name: "temperature", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(0, 30)}},
	}

	m := New(cat, nil)
	results, err := m.Augment(ctx, probe, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAugmentUnionCandidateByNameAndType(t *testing.T) {
	cat := memory.NewCatalog()
	ctx := context.Background()

	candidate := dataset.NewProfile(dataset.NewId("census", "population"), dataset.DatasetDescriptor{
		Materialize: dataset.Materialize{Identifier: "census", SourceLocalID: "population"},
	})
	var sem dataset.SemanticSet
	sem.Add(dataset.SemanticCategorical)
	candidate.Columns = []dataset.ColumnProfile{
		{Name: "City_Name", StructuralType: dataset.StructuralText, SemanticTypes: sem},
	}
	require.NoError(t, cat.Put(ctx, candidate))

	probe := dataset.NewProfile(dataset.NewId("probe", "p1"), dataset.DatasetDescriptor{})
	var probeSem dataset.SemanticSet
	probeSem.Add(dataset.SemanticCategorical)
	probe.Columns = []dataset.ColumnProfile{
		{Name: "city-name", StructuralType: dataset.StructuralText, SemanticTypes: probeSem},
	}

	m := New(cat, nil)
	results, err := m.Augment(ctx, probe, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"city-name"}, results[0].UnionColumns)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestAugmentUnionCandidateBelowThresholdExcluded(t *testing.T) {
	cat := memory.NewCatalog()
	ctx := context.Background()

	var sem dataset.SemanticSet
	sem.Add(dataset.SemanticCategorical)

	candidate := dataset.NewProfile(dataset.NewId("census", "population"), dataset.DatasetDescriptor{
		Materialize: dataset.Materialize{Identifier: "census", SourceLocalID: "population"},
	})
	candidate.Columns = []dataset.ColumnProfile{
		{Name: "city_name", StructuralType: dataset.StructuralText, SemanticTypes: sem},
	}
	require.NoError(t, cat.Put(ctx, candidate))

	probe := dataset.NewProfile(dataset.NewId("probe", "p1"), dataset.DatasetDescriptor{})
	probe.Columns = []dataset.ColumnProfile{
		{Name: "city_name", StructuralType: dataset.StructuralText, SemanticTypes: sem},
		{Name: "state", StructuralType: dataset.StructuralText},
		{Name: "county", StructuralType: dataset.StructuralText},
	}

	m := New(cat, nil)
	results, err := m.Augment(ctx, probe, nil)
	require.NoError(t, err)
	assert.Empty(t, results, "a 1-of-3 column union alignment scores below JoinThreshold and must not be returned")
}

func TestAugmentExcludesProbeItself(t *testing.T) {
	cat := memory.NewCatalog()
	ctx := context.Background()

	probe := dataset.NewProfile(dataset.NewId("src", "a"), dataset.DatasetDescriptor{})
	probe.Columns = []dataset.ColumnProfile{
		{Name: "x", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(0, 10)}},
	}
	require.NoError(t, cat.Put(ctx, probe))

	m := New(cat, nil)
	results, err := m.Augment(ctx, probe, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAugmentSortedByScoreDescending(t *testing.T) {
	cat := memory.NewCatalog()
	ctx := context.Background()

	strong := dataset.NewProfile(dataset.NewId("a", "strong"), dataset.DatasetDescriptor{Materialize: dataset.Materialize{Identifier: "a"}})
	strong.Columns = []dataset.ColumnProfile{{Name: "strong_x", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(0, 10)}}}
	weak := dataset.NewProfile(dataset.NewId("b", "weak"), dataset.DatasetDescriptor{Materialize: dataset.Materialize{Identifier: "b"}})
	weak.Columns = []dataset.ColumnProfile{{Name: "weak_x", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(5, 20)}}}
	require.NoError(t, cat.Put(ctx, strong))
	require.NoError(t, cat.Put(ctx, weak))

	probe := dataset.NewProfile(dataset.NewId("probe", "p1"), dataset.DatasetDescriptor{})
	probe.Columns = []dataset.ColumnProfile{{Name: "x", StructuralType: dataset.StructuralFloat, Coverage: []dataset.Interval{ival(0, 10)}}}

	m := New(cat, nil)
	results, err := m.Augment(ctx, probe, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, strong.ID, results[0].ID)
}
