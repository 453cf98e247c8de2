package service

import (
	"context"
	"sync/atomic"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/index"
)

type searcherBox struct {
	searcher ChunkSearcher
}

// SearcherHandle is a ChunkSearcher whose backing searcher can be swapped
// atomically while requests are in flight. The serve loop reads through the
// handle; the index reload job writes to it.
type SearcherHandle struct {
	box atomic.Pointer[searcherBox]
}

// NewSearcherHandle creates a handle, optionally seeded with a searcher.
func NewSearcherHandle(searcher ChunkSearcher) *SearcherHandle {
	h := &SearcherHandle{}
	if searcher != nil {
		h.Swap(searcher)
	}
	return h
}

// Swap installs a new backing searcher. In-flight searches finish against
// the searcher they started with.
func (h *SearcherHandle) Swap(searcher ChunkSearcher) {
	h.box.Store(&searcherBox{searcher: searcher})
}

// Ready reports whether a backing searcher is installed.
func (h *SearcherHandle) Ready() bool {
	box := h.box.Load()
	return box != nil && box.searcher != nil
}

// SearchChunks delegates to the current backing searcher.
func (h *SearcherHandle) SearchChunks(ctx context.Context, query []float32, k int) ([]string, []index.Hit, error) {
	box := h.box.Load()
	if box == nil || box.searcher == nil {
		return nil, nil, domain.ErrIndexNotBuilt
	}
	return box.searcher.SearchChunks(ctx, query, k)
}
