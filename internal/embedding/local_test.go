package embedding

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedder_Dimension(t *testing.T) {
	assert.Equal(t, DefaultDim, NewLocalEmbedder(0).Dimension())
	assert.Equal(t, 512, NewLocalEmbedder(512).Dimension())
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(DefaultDim)
	text := "Django makes it easier to build better web apps more quickly."

	first, err := e.Embed(context.Background(), text)
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), text)
	require.NoError(t, err)

	// Bit-identical, not just approximately equal.
	require.Equal(t, first, second)
}

func TestLocalEmbedder_UnitNorm(t *testing.T) {
	e := NewLocalEmbedder(DefaultDim)
	texts := []string{
		"a",
		"short text",
		"Django is a high-level Python web framework.",
		strings.Repeat("long repetitive content with many words ", 100),
	}

	for _, text := range texts {
		vec, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, vec, DefaultDim)

		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6, "norm for %q", text)
	}
}

func TestLocalEmbedder_EmptyInput(t *testing.T) {
	e := NewLocalEmbedder(DefaultDim)

	for _, text := range []string{"", "   \n\t "} {
		vec, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, vec, DefaultDim)
		for i, v := range vec {
			require.False(t, math.IsNaN(float64(v)), "dim %d is NaN", i)
		}
	}
}

func TestLocalEmbedder_DifferentTextsDiffer(t *testing.T) {
	e := NewLocalEmbedder(DefaultDim)

	a, err := e.Embed(context.Background(), "postgres replication internals")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "chocolate cake recipe")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLocalEmbedder_KeywordDimension(t *testing.T) {
	e := NewLocalEmbedder(DefaultDim)

	withKeyword, err := e.Embed(context.Background(), "django django django")
	require.NoError(t, err)
	without, err := e.Embed(context.Background(), "gopher gopher gopher")
	require.NoError(t, err)

	// Dim 49 is the django gazetteer slot: lit for the first text only.
	assert.Greater(t, withKeyword[49], float32(0))
	assert.Equal(t, float32(0), without[49])
}

func TestLocalEmbedder_CaseInsensitive(t *testing.T) {
	e := NewLocalEmbedder(DefaultDim)

	lower, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	upper, err := e.Embed(context.Background(), "HELLO WORLD")
	require.NoError(t, err)

	assert.Equal(t, lower, upper)
}
