package georesolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNamesCountryAndState(t *testing.T) {
	g := New()
	resolved := g.ResolveNames([]string{"france", "CA", "nowhere", "Texas"})

	require.Len(t, resolved, 4)
	require.NotNil(t, resolved[0])
	assert.Equal(t, "France", *resolved[0])
	require.NotNil(t, resolved[1])
	assert.Equal(t, "California", *resolved[1])
	assert.Nil(t, resolved[2])
	require.NotNil(t, resolved[3])
	assert.Equal(t, "Texas", *resolved[3])
}
