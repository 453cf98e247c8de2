package service

import (
	"context"
	"fmt"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/index"
)

// EmbeddingClient generates query embeddings. It must be backed by the same
// model the index was built with; the index artifact's model stamp is
// checked at load time to enforce this.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher answers nearest-neighbor queries with chunk texts and
// scores as parallel slices, best first. Implemented by the flat file index
// adapter and by the Postgres chunk store.
type ChunkSearcher interface {
	SearchChunks(ctx context.Context, query []float32, k int) ([]string, []index.Hit, error)
}

// IndexSearcher adapts a flat index plus its line-aligned chunk slice to
// the ChunkSearcher interface.
type IndexSearcher struct {
	idx    *index.Flat
	chunks []string
}

// NewIndexSearcher pairs a loaded index with its chunk texts. The artifact
// loaders guarantee both have the same length.
func NewIndexSearcher(idx *index.Flat, chunks []string) (*IndexSearcher, error) {
	if idx == nil || len(chunks) == 0 {
		return nil, domain.ErrIndexNotBuilt
	}
	if idx.Len() != len(chunks) {
		return nil, domain.ErrChunkVectorSkew
	}
	return &IndexSearcher{idx: idx, chunks: chunks}, nil
}

// SearchChunks queries the in-memory index and resolves hit positions back
// to chunk text.
func (s *IndexSearcher) SearchChunks(_ context.Context, query []float32, k int) ([]string, []index.Hit, error) {
	hits, err := s.idx.Search(query, k)
	if err != nil {
		return nil, nil, err
	}
	chunks := make([]string, len(hits))
	for i, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(s.chunks) {
			return nil, nil, domain.ErrChunkVectorSkew
		}
		chunks[i] = s.chunks[hit.Position]
	}
	return chunks, hits, nil
}

// Retriever embeds questions and queries the similarity index.
type Retriever struct {
	embedding EmbeddingClient
	searcher  ChunkSearcher
}

// NewRetriever creates a Retriever over the given collaborators.
func NewRetriever(embedding EmbeddingClient, searcher ChunkSearcher) *Retriever {
	return &Retriever{embedding: embedding, searcher: searcher}
}

// Retrieve returns the top-k chunks for the question with their similarity
// scores as parallel slices, best first. Repeated calls against a fixed
// index return identical results.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]string, []float32, error) {
	if question == "" {
		return nil, nil, domain.ErrEmptyQuestion
	}
	if k < 1 {
		return nil, nil, domain.ErrInvalidTopK
	}
	if r.searcher == nil {
		return nil, nil, domain.ErrIndexNotBuilt
	}

	vec, err := r.embedding.GenerateEmbedding(ctx, question)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to embed question: %w", err)
	}

	chunks, hits, err := r.searcher.SearchChunks(ctx, vec, k)
	if err != nil {
		return nil, nil, err
	}

	scores := make([]float32, len(hits))
	for i, hit := range hits {
		scores[i] = hit.Score
	}
	return chunks, scores, nil
}
