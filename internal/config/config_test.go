package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 200, cfg.ChunkWords)
	assert.Equal(t, 3, cfg.TopK)
	assert.InDelta(t, 0.4, cfg.RoutingThreshold, 1e-6)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.EmbeddingDimensions)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("EHRQA_PORT", "9090")
	t.Setenv("EHRQA_ARTIFACT_DIR", "/tmp/ehrqa")
	t.Setenv("EHRQA_ROUTING_THRESHOLD", "0.75")
	t.Setenv("EHRQA_SERPAPI_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.InDelta(t, 0.75, cfg.RoutingThreshold, 1e-6)
	assert.True(t, cfg.HasSerpAPI())
	assert.Equal(t, filepath.Join("/tmp/ehrqa", "chunks.txt"), cfg.ChunksPath())
	assert.Equal(t, filepath.Join("/tmp/ehrqa", "embeddings.json"), cfg.EmbeddingsPath())
	assert.Equal(t, filepath.Join("/tmp/ehrqa", "index.json"), cfg.IndexPath())
}

func TestConfig_OptionalCollaborators(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasOpenAI())
	assert.False(t, cfg.HasDatabase())
	assert.False(t, cfg.HasS3())

	cfg.OpenAIAPIKey = "sk-test"
	cfg.DatabaseURL = "postgres://localhost/ehrqa"
	assert.True(t, cfg.HasOpenAI())
	assert.True(t, cfg.HasDatabase())

	cfg.S3Endpoint = "http://localhost:9000"
	assert.False(t, cfg.HasS3(), "endpoint alone is not enough")
	cfg.S3AccessKey = "access"
	cfg.S3SecretKey = "secret"
	assert.True(t, cfg.HasS3())
}
