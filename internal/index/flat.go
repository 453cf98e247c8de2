// Package index implements an exact nearest-neighbor index over the corpus
// embedding vectors. The index is built once per corpus version, persisted
// next to the other build artifacts, and treated as read-only at query time.
package index

import (
	"math"
	"sort"

	"github.com/clinvector/ehrqa/internal/domain"
)

// Metric selects how query and corpus vectors are compared.
type Metric string

const (
	// MetricL2 orders results by ascending Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricCosine orders results by descending inner product over
	// L2-normalized vectors.
	MetricCosine Metric = "cosine"
)

// Hit is one search result: the vector's corpus position and its score.
// For MetricL2 the score is a distance (lower is better); for MetricCosine
// it is a similarity in [-1, 1] (higher is better).
type Hit struct {
	Position int
	Score    float32
}

// Flat is an exact brute-force index. It is safe for concurrent readers
// once built; nothing mutates it after Build.
type Flat struct {
	model   string
	metric  Metric
	dim     int
	vectors [][]float32
}

// Build constructs a Flat index over vectors. All vectors must share one
// dimension. For MetricCosine the stored copies are L2-normalized so the
// inner product at query time equals cosine similarity.
func Build(model string, metric Metric, vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	dim := len(vectors[0])
	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, domain.ErrDimensionMismatch
		}
		cp := make([]float32, dim)
		copy(cp, v)
		if metric == MetricCosine {
			normalize(cp)
		}
		stored[i] = cp
	}
	return &Flat{model: model, metric: metric, dim: dim, vectors: stored}, nil
}

// Model returns the embedding model identifier the index was built with.
func (f *Flat) Model() string { return f.model }

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Search returns the k best hits for query, best first. The query is
// normalized for MetricCosine. Search is read-only and side-effect-free;
// repeated calls with the same query return identical results.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if f == nil || len(f.vectors) == 0 {
		return nil, domain.ErrIndexNotBuilt
	}
	if len(query) != f.dim {
		return nil, domain.ErrDimensionMismatch
	}
	if k < 1 {
		return nil, domain.ErrInvalidTopK
	}

	q := query
	if f.metric == MetricCosine {
		q = make([]float32, f.dim)
		copy(q, query)
		normalize(q)
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Position: i, Score: f.score(q, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if f.metric == MetricL2 {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *Flat) score(q, v []float32) float32 {
	if f.metric == MetricL2 {
		var sum float32
		for i := range q {
			d := q[i] - v[i]
			sum += d * d
		}
		return float32(math.Sqrt(float64(sum)))
	}
	var dot float32
	for i := range q {
		dot += q[i] * v[i]
	}
	return dot
}

func normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
