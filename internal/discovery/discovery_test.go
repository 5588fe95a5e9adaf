package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapyr/mcp-hangar/internal/provider"
)

func TestStaticSource_ProposeReturnsConfiguredSpecs(t *testing.T) {
	specs := []provider.Config{
		{ID: "math", Mode: provider.ModeSubprocess, Command: []string{"math-server"}},
		{ID: "search", Mode: provider.ModeSubprocess, Command: []string{"search-server"}},
	}
	src := NewStaticSource(specs)

	got, err := src.Propose(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "math", got[0].ID)
	assert.Equal(t, "search", got[1].ID)
}

func TestStaticSource_ProposeReturnsACopyNotTheBackingSlice(t *testing.T) {
	specs := []provider.Config{{ID: "math", Mode: provider.ModeSubprocess, Command: []string{"math-server"}}}
	src := NewStaticSource(specs)

	got, err := src.Propose(context.Background())
	require.NoError(t, err)
	got[0].ID = "mutated"

	got2, err := src.Propose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "math", got2[0].ID)
}
