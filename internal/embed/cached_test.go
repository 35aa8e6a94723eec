package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_EmbedHitsCache(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "кафель")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "кафель")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, c.Len())
}

func TestCachedEmbedder_EmbedBatchOnlySendsMisses(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := c.Embed(ctx, "b")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, 3, inner.texts, "one for the single embed, two misses in the batch")

	direct, _ := inner.StaticEmbedder.Embed(ctx, "c")
	assert.Equal(t, direct, vecs[2])

	_, err = c.EmbedBatch(ctx, []string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 0)

	assert.Equal(t, 32, c.Dimensions())
	assert.Equal(t, "static-hash-32", c.ModelName())
	assert.True(t, c.Available(context.Background()))
	assert.Same(t, inner, c.Inner())
	require.NoError(t, c.Close())
	assert.False(t, c.Available(context.Background()))
}
