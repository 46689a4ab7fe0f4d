package offline

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedIsDeterministicAndUnitNorm(t *testing.T) {
	provider := NewProvider(64)
	ctx := context.Background()

	first, err := provider.Embed(ctx, []string{"the warehouse meeting", "the warehouse meeting", "a different chunk"})
	require.NoError(t, err)
	require.Len(t, first, 3)

	assert.Equal(t, first[0], first[1], "identical chunks embed identically")
	assert.NotEqual(t, first[0], first[2])

	for _, vec := range first {
		require.Len(t, vec, 64)
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}

	second, err := provider.Embed(ctx, []string{"the warehouse meeting"})
	require.NoError(t, err)
	assert.Equal(t, first[0], second[0], "repeated runs produce identical vectors")
}

func TestExtractDocumentPassesThroughText(t *testing.T) {
	provider := NewProvider(0)
	ctx := context.Background()

	text, err := provider.ExtractDocument(ctx, []byte("plain readable body"), "en")
	require.NoError(t, err)
	assert.Equal(t, "plain readable body", text)

	binary := make([]byte, 64) // All zero bytes, clearly not text
	placeholder, err := provider.ExtractDocument(ctx, binary, "en")
	require.NoError(t, err)
	assert.Contains(t, placeholder, "offline extraction")
}

func TestExtractGraphLinksNamesInMentionOrder(t *testing.T) {
	provider := NewProvider(0)

	nodes, edges, err := provider.ExtractGraph(context.Background(),
		"Alice phoned Bob about the NSW shipment before Carol arrived.")
	require.NoError(t, err)

	labels := make([]string, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, labels, "acronyms are skipped")

	require.Len(t, edges, 2)
	assert.Equal(t, "Alice", edges[0].SourceLabel)
	assert.Equal(t, "Bob", edges[0].TargetLabel)
	assert.Equal(t, "associated_with", edges[0].Type)
}

func TestTranscribeIsDeterministic(t *testing.T) {
	provider := NewProvider(0)
	ctx := context.Background()

	audio := []byte{1, 2, 3, 4}
	text1, segments, err := provider.Transcribe(ctx, audio, "es")
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, text1, segments[0].Text)

	text2, _, err := provider.Transcribe(ctx, audio, "es")
	require.NoError(t, err)
	assert.Equal(t, text1, text2)
}

func TestExtractFrames(t *testing.T) {
	provider := NewProvider(0)
	ctx := context.Background()

	frames, err := provider.ExtractFrames(ctx, make([]byte, 1024))
	require.NoError(t, err)
	assert.Len(t, frames, 3)

	_, err = provider.ExtractFrames(ctx, nil)
	assert.Error(t, err)
}
