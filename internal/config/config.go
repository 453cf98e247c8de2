package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Build artifacts live under ArtifactDir; each build replaces them
	// wholesale via atomic renames.
	DataDir     string `envconfig:"DATA_DIR" default:"data"`
	ArtifactDir string `envconfig:"ARTIFACT_DIR" default:"artifacts"`
	LogPath     string `envconfig:"LOG_PATH" default:"logs/interactions.jsonl"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	GenerationModel     string `envconfig:"GENERATION_MODEL" default:"gpt-4o-mini"`

	ChunkWords         int     `envconfig:"CHUNK_WORDS" default:"200"`
	TopK               int     `envconfig:"TOP_K" default:"3"`
	RoutingThreshold   float32 `envconfig:"ROUTING_THRESHOLD" default:"0.4"`
	IndexReloadSeconds int     `envconfig:"INDEX_RELOAD_SECONDS" default:"30"`

	// Web-search fallback credential; intentionally configuration-only,
	// never a source literal.
	SerpAPIKey string `envconfig:"SERPAPI_KEY"`

	// Optional Postgres backend for vector search and interaction logs.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Optional error tracking.
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Optional S3-compatible artifact sync.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"ehrqa-artifacts"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("EHRQA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSerpAPI() bool {
	return c.SerpAPIKey != ""
}

// ChunksPath is the newline-delimited chunk text artifact.
func (c *Config) ChunksPath() string {
	return filepath.Join(c.ArtifactDir, "chunks.txt")
}

// EmbeddingsPath is the dense embedding vector artifact.
func (c *Config) EmbeddingsPath() string {
	return filepath.Join(c.ArtifactDir, "embeddings.json")
}

// IndexPath is the persisted similarity index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.ArtifactDir, "index.json")
}
