package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a deterministic 3-dim vector per text.
type fakeEmbedder struct {
	calls []string
	fail  bool
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	f.calls = append(f.calls, text)
	return []float32{float32(len(text)), float32(len(strings.Fields(text))), 1}, nil
}

func TestBuilder_ChunkVectorParity(t *testing.T) {
	docs := []domain.Document{
		{ID: 0, Text: strings.Repeat("lungs are clear ", 80)},
		{ID: 1, Text: "heart size is normal"},
	}

	embedder := &fakeEmbedder{}
	builder := NewBuilder(embedder, "test-model", 50)

	store, err := builder.Build(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, "test-model", store.Model)
	assert.Equal(t, len(store.Chunks), len(store.Vectors))
	assert.Equal(t, 3, store.Dimension)
	// 240 words at 50 per chunk = 5 chunks, plus one short document.
	assert.Len(t, store.Chunks, 6)
	assert.Equal(t, store.Chunks, embedder.calls)
}

func TestBuilder_DocumentOrderPreserved(t *testing.T) {
	docs := []domain.Document{
		{ID: 0, Text: "alpha"},
		{ID: 1, Text: "beta"},
		{ID: 2, Text: "gamma"},
	}

	builder := NewBuilder(&fakeEmbedder{}, "m", 200)
	store, err := builder.Build(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, store.Chunks)
}

func TestBuilder_EmbedderFailureAborts(t *testing.T) {
	builder := NewBuilder(&fakeEmbedder{fail: true}, "m", 200)
	_, err := builder.Build(context.Background(), []domain.Document{{Text: "some text"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed chunk 0")
}

func TestBuilder_EmptyCorpus(t *testing.T) {
	builder := NewBuilder(&fakeEmbedder{}, "m", 200)
	_, err := builder.Build(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	embPath := filepath.Join(dir, "embeddings.json")
	chunksPath := filepath.Join(dir, "chunks.txt")

	store := &EmbeddingStore{
		Model:     "m",
		Dimension: 2,
		Vectors:   [][]float32{{1, 2}, {3, 4}},
		Chunks:    []string{"first chunk", "second\nchunk"},
	}
	require.NoError(t, store.Save(embPath, chunksPath))

	loaded, err := LoadStore(embPath, chunksPath)
	require.NoError(t, err)
	assert.Equal(t, store.Vectors, loaded.Vectors)
	// Embedded newlines are flattened at write time.
	assert.Equal(t, []string{"first chunk", "second chunk"}, loaded.Chunks)
	assert.Equal(t, len(loaded.Vectors), len(loaded.Chunks))
}

func TestStore_SaveRejectsSkew(t *testing.T) {
	store := &EmbeddingStore{
		Model:     "m",
		Dimension: 2,
		Vectors:   [][]float32{{1, 2}},
		Chunks:    []string{"a", "b"},
	}
	err := store.Save(filepath.Join(t.TempDir(), "e.json"), filepath.Join(t.TempDir(), "c.txt"))
	assert.ErrorIs(t, err, domain.ErrChunkVectorSkew)
}

func TestLoadStore_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadStore(filepath.Join(dir, "e.json"), filepath.Join(dir, "c.txt"))
	assert.ErrorIs(t, err, domain.ErrEmbeddingsMissing)

	_, err = LoadChunks(filepath.Join(dir, "c.txt"))
	assert.ErrorIs(t, err, domain.ErrChunksMissing)
}
