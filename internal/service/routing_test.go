package service

import (
	"testing"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRoute_APIOnlyIgnoresScores(t *testing.T) {
	assert.Equal(t, domain.UseAPI, Route([]float32{0.99}, domain.ModeAPIOnly, 0.4))
	assert.Equal(t, domain.UseAPI, Route(nil, domain.ModeAPIOnly, 0.4))
}

func TestRoute_EmptyScoresUseAPI(t *testing.T) {
	assert.Equal(t, domain.UseAPI, Route(nil, domain.ModeHybrid, 0.4))
	assert.Equal(t, domain.UseAPI, Route([]float32{}, domain.ModeHybrid, 0.4))
}

func TestRoute_WeakScoresUseAPI(t *testing.T) {
	assert.Equal(t, domain.UseAPI, Route([]float32{0.2, 0.1}, domain.ModeHybrid, 0.4))
}

func TestRoute_StrongScoresUseDataset(t *testing.T) {
	assert.Equal(t, domain.UseDataset, Route([]float32{0.2, 0.6, 0.1}, domain.ModeHybrid, 0.4))
	// Exactly at threshold counts as strong enough.
	assert.Equal(t, domain.UseDataset, Route([]float32{0.4}, domain.ModeHybrid, 0.4))
}

func TestRoute_DatasetOnlyFollowsSameRules(t *testing.T) {
	// The caller bypasses the API branch in dataset-only mode; the policy
	// itself still reports weak retrieval.
	assert.Equal(t, domain.UseAPI, Route([]float32{0.1}, domain.ModeDatasetOnly, 0.4))
	assert.Equal(t, domain.UseDataset, Route([]float32{0.9}, domain.ModeDatasetOnly, 0.4))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, domain.ModeHybrid, domain.ParseMode(""))
	assert.Equal(t, domain.ModeHybrid, domain.ParseMode("anything"))
	assert.Equal(t, domain.ModeDatasetOnly, domain.ParseMode("dataset"))
	assert.Equal(t, domain.ModeAPIOnly, domain.ParseMode("api"))
}
