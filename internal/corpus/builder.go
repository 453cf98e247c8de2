package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/index"
	"github.com/clinvector/ehrqa/internal/service"
)

// EmbeddingClient generates one embedding vector per chunk.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingStore is the persisted pair of build artifacts: the chunk texts
// and their dense embedding rows, line-aligned by position.
type EmbeddingStore struct {
	Model     string      `json:"model"`
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
	Chunks    []string    `json:"-"`
}

// Builder chunks documents and embeds every chunk.
type Builder struct {
	client     EmbeddingClient
	model      string
	chunkWords int
}

// NewBuilder creates a Builder using the given embedding collaborator. The
// model identifier stamps the artifacts so query time can verify it.
func NewBuilder(client EmbeddingClient, model string, chunkWords int) *Builder {
	if chunkWords <= 0 {
		chunkWords = service.DefaultChunkWords
	}
	return &Builder{client: client, model: model, chunkWords: chunkWords}
}

// Build produces the full ordered chunk list (document order, chunk order
// within each document) and one embedding per chunk.
func (b *Builder) Build(ctx context.Context, docs []domain.Document) (*EmbeddingStore, error) {
	if len(docs) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	var chunks []string
	for _, doc := range docs {
		for chunk := range service.Chunks(doc.Text, b.chunkWords) {
			chunks = append(chunks, chunk)
		}
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	log.Printf("prepared %d chunks from %d documents", len(chunks), len(docs))

	store := &EmbeddingStore{Model: b.model, Chunks: chunks}
	for i, chunk := range chunks {
		vec, err := b.client.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		if store.Dimension == 0 {
			store.Dimension = len(vec)
		} else if len(vec) != store.Dimension {
			return nil, domain.ErrDimensionMismatch
		}
		store.Vectors = append(store.Vectors, vec)
	}
	return store, nil
}

// Save persists the store as two line-aligned artifacts: embeddings JSON and
// newline-delimited chunk text, each replaced atomically. Embedded newlines
// in chunk text are flattened so line N always matches vector N.
func (s *EmbeddingStore) Save(embPath, chunksPath string) error {
	if len(s.Vectors) != len(s.Chunks) {
		return domain.ErrChunkVectorSkew
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode embeddings: %w", err)
	}
	if err := index.WriteFileAtomic(embPath, data); err != nil {
		return err
	}

	var sb strings.Builder
	for _, chunk := range s.Chunks {
		sb.WriteString(strings.ReplaceAll(chunk, "\n", " "))
		sb.WriteByte('\n')
	}
	return index.WriteFileAtomic(chunksPath, []byte(sb.String()))
}

// LoadStore reads both artifacts back and verifies they are still
// line-aligned.
func LoadStore(embPath, chunksPath string) (*EmbeddingStore, error) {
	data, err := os.ReadFile(embPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrEmbeddingsMissing
		}
		return nil, fmt.Errorf("failed to read embeddings artifact: %w", err)
	}

	var store EmbeddingStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings artifact: %w", err)
	}

	chunks, err := LoadChunks(chunksPath)
	if err != nil {
		return nil, err
	}
	store.Chunks = chunks

	if len(store.Vectors) != len(store.Chunks) {
		return nil, domain.ErrChunkVectorSkew
	}
	for _, v := range store.Vectors {
		if len(v) != store.Dimension {
			return nil, domain.ErrDimensionMismatch
		}
	}
	return &store, nil
}

// LoadChunks reads the newline-delimited chunk artifact.
func LoadChunks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrChunksMissing
		}
		return nil, fmt.Errorf("failed to open chunk artifact: %w", err)
	}
	defer f.Close()

	var chunks []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunk artifact: %w", err)
	}
	return chunks, nil
}
