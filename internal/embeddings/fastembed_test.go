//go:build cgo

package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFastEmbedProvider_UnsupportedModel(t *testing.T) {
	_, err := NewFastEmbedProvider(FastEmbedConfig{Model: "acme/unknown-model"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFastEmbedProvider_EmbedBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}
	if ONNXLibraryPath() == "" {
		t.Skip("ONNX runtime not available, skipping FastEmbed test")
	}

	p, err := NewFastEmbedProvider(FastEmbedConfig{CacheDir: t.TempDir()})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 384, p.Dimension())

	vectors, err := p.EmbedBatch(context.Background(), []string{
		"Suffering from high fever",
		"I have a high fever",
		"Attending my sister's wedding",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 384)
	}

	_, err = p.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	require.NoError(t, p.Close())
	_, err = p.EmbedBatch(context.Background(), []string{"after close"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
