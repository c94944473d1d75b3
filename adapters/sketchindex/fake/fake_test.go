package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/domain/dataset"
)

func TestOverlapIdenticalSetsIsOne(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Index(ctx, dataset.NewId("a", "x"), "city", []string{"boston", "chicago", "reno"}))

	sketches, err := idx.Sketch(ctx, map[string][]string{"city": {"boston", "chicago", "reno"}})
	require.NoError(t, err)

	score, err := idx.Overlap(ctx, sketches["city"], dataset.NewId("a", "x"), "city")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestOverlapDisjointSetsIsZero(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Index(ctx, dataset.NewId("a", "x"), "city", []string{"boston", "chicago"}))

	sketches, err := idx.Sketch(ctx, map[string][]string{"city": {"reno", "tucson"}})
	require.NoError(t, err)

	score, err := idx.Overlap(ctx, sketches["city"], dataset.NewId("a", "x"), "city")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestOverlapUnindexedColumnIsZero(t *testing.T) {
	ctx := context.Background()
	idx := New()

	score, err := idx.Overlap(ctx, dataset.Lazo{HashValues: []uint64{1, 2, 3}}, dataset.NewId("a", "x"), "missing")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}
