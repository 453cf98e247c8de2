//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimensions = 1536

// testVector returns a unit-ish vector pointing along the given axis so
// cosine distances between different axes are maximal.
func testVector(axis int) []float32 {
	v := make([]float32, testDimensions)
	v[axis%testDimensions] = 1
	return v
}

func TestChunkStore_ReplaceAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewChunkStore(pool)

	chunks := []string{"lungs are clear", "heart size normal", "no acute findings"}
	vectors := [][]float32{testVector(0), testVector(1), testVector(2)}
	require.NoError(t, store.ReplaceCorpus(ctx, "text-embedding-3-small", chunks, vectors))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	model, err := store.Model(ctx)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", model)

	got, hits, err := store.SearchChunks(ctx, testVector(1), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "heart size normal", got[0])
	assert.Equal(t, 1, hits[0].Position)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-4)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestChunkStore_ReplaceCorpusIsWholesale(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewChunkStore(pool)
	require.NoError(t, store.ReplaceCorpus(ctx, "model-a", []string{"old one", "old two"}, [][]float32{testVector(0), testVector(1)}))
	require.NoError(t, store.ReplaceCorpus(ctx, "model-b", []string{"new one"}, [][]float32{testVector(2)}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	model, err := store.Model(ctx)
	require.NoError(t, err)
	assert.Equal(t, "model-b", model)
}

func TestChunkStore_ModelOnEmptyCorpus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewChunkStore(pool)
	_, err := store.Model(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexNotBuilt)
}

func TestInteractionLogStore_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	logs := NewInteractionLogStore(pool)

	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Query:     "is the heart enlarged?",
		Retrieved: []string{"heart size normal"},
		Answer:    "No, heart size is normal.",
		Reference: "heart size normal",
		Score:     "0.91",
	}
	require.NoError(t, logs.Append(entry))

	got, err := logs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.ID, got[0].ID)
	assert.Equal(t, entry.Query, got[0].Query)
	assert.Equal(t, entry.Retrieved, got[0].Retrieved)
	assert.Equal(t, entry.Score, got[0].Score)
}
