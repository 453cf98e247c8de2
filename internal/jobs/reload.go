package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/clinvector/ehrqa/internal/corpus"
	"github.com/clinvector/ehrqa/internal/index"
	"github.com/clinvector/ehrqa/internal/service"
)

// IndexReloader watches the index and chunk artifacts and swaps a freshly
// loaded searcher into the handle when either file changes on disk. Builds
// write artifacts atomically via rename, so a changed fingerprint always
// points at a complete file pair.
type IndexReloader struct {
	indexPath   string
	chunksPath  string
	model       string
	handle      *service.SearcherHandle
	fingerprint string
}

// NewIndexReloader creates a reloader for the given artifact paths. The
// model is checked against the artifact stamp on every load.
func NewIndexReloader(indexPath, chunksPath, model string, handle *service.SearcherHandle) *IndexReloader {
	return &IndexReloader{
		indexPath:  indexPath,
		chunksPath: chunksPath,
		model:      model,
		handle:     handle,
	}
}

// ProcessJobs checks the artifact fingerprint and reloads on change. A
// missing artifact pair is not an error; the handle keeps serving whatever
// it last held.
func (r *IndexReloader) ProcessJobs(_ context.Context) error {
	fp, err := r.currentFingerprint()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if fp == r.fingerprint {
		return nil
	}

	searcher, n, err := LoadSearcher(r.indexPath, r.chunksPath, r.model)
	if err != nil {
		return fmt.Errorf("failed to reload index: %w", err)
	}

	r.handle.Swap(searcher)
	r.fingerprint = fp
	log.Printf("index reloaded: %d chunks", n)
	return nil
}

func (r *IndexReloader) currentFingerprint() (string, error) {
	idxInfo, err := os.Stat(r.indexPath)
	if err != nil {
		return "", err
	}
	chunkInfo, err := os.Stat(r.chunksPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d|%d-%d",
		idxInfo.Size(), idxInfo.ModTime().UnixNano(),
		chunkInfo.Size(), chunkInfo.ModTime().UnixNano()), nil
}

// LoadSearcher loads the index artifact and its chunk file into an
// in-memory searcher, verifying the model stamp and chunk/vector
// alignment. Returns the chunk count for logging.
func LoadSearcher(indexPath, chunksPath, model string) (*service.IndexSearcher, int, error) {
	idx, err := index.Load(indexPath, model)
	if err != nil {
		return nil, 0, err
	}
	chunks, err := corpus.LoadChunks(chunksPath)
	if err != nil {
		return nil, 0, err
	}
	searcher, err := service.NewIndexSearcher(idx, chunks)
	if err != nil {
		return nil, 0, err
	}
	return searcher, len(chunks), nil
}
