package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clinvector/ehrqa/internal/domain"
)

// artifact is the on-disk form of a Flat index. The model stamp lets query
// nodes refuse an index built with a different embedding model.
type artifact struct {
	Model     string      `json:"model"`
	Metric    Metric      `json:"metric"`
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
}

// Save persists the index to path, writing to a temp file and renaming so a
// crash mid-write never leaves a truncated artifact.
func (f *Flat) Save(path string) error {
	data, err := json.Marshal(artifact{
		Model:     f.model,
		Metric:    f.metric,
		Dimension: f.dim,
		Vectors:   f.vectors,
	})
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// Load reads a persisted index. When expectModel is non-empty, a differing
// model stamp fails fast with ErrModelMismatch.
func Load(path, expectModel string) (*Flat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrIndexMissing
		}
		return nil, fmt.Errorf("failed to read index artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to decode index artifact: %w", err)
	}
	if expectModel != "" && art.Model != expectModel {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("index was built with model %q, queries use %q", art.Model, expectModel),
			domain.ErrModelMismatch)
	}
	if len(art.Vectors) == 0 {
		return nil, domain.ErrIndexNotBuilt
	}
	for _, v := range art.Vectors {
		if len(v) != art.Dimension {
			return nil, domain.ErrDimensionMismatch
		}
	}

	metric := art.Metric
	if metric == "" {
		metric = MetricCosine
	}

	// Stored vectors are already normalized for cosine; load them as-is.
	return &Flat{
		model:   art.Model,
		metric:  metric,
		dim:     art.Dimension,
		vectors: art.Vectors,
	}, nil
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}
	return nil
}
