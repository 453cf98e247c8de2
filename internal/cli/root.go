// Package cli wires the ehrqad subcommands: the offline corpus pipeline
// (preprocess, build, index), the serving API (serve) and the operator
// tools (ask, eval).
package cli

import (
	"context"
	"fmt"

	"github.com/clinvector/ehrqa/internal/config"
	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/external"
	"github.com/clinvector/ehrqa/internal/jobs"
	"github.com/clinvector/ehrqa/internal/openai"
	"github.com/clinvector/ehrqa/internal/qalog"
	"github.com/clinvector/ehrqa/internal/service"
	"github.com/clinvector/ehrqa/internal/storage"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the ehrqad command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ehrqad",
		Short: "Clinical report QA daemon and CLI",
		Long:  "ehrqad builds a retrieval corpus from clinical report exports and answers questions over it, with an encyclopedia fallback for out-of-corpus questions",
	}

	rootCmd.AddCommand(PreprocessCmd())
	rootCmd.AddCommand(BuildCmd())
	rootCmd.AddCommand(IndexCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(AskCmd())
	rootCmd.AddCommand(EvalCmd())

	return rootCmd
}

// newEmbeddingClient requires an OpenAI key; every retrieval path embeds
// the question with the same model the corpus was built with.
func newEmbeddingClient(cfg *config.Config) (*openai.Client, error) {
	if !cfg.HasOpenAI() {
		return nil, domain.NewDomainError(domain.ErrCodeConfiguration, "OPENAI_API_KEY is required")
	}
	return openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	}), nil
}

// newArtifactStore creates the S3 artifact sync client when configured.
func newArtifactStore(ctx context.Context, cfg *config.Config) (*storage.ArtifactStore, error) {
	if !cfg.HasS3() {
		return nil, nil
	}
	store, err := storage.NewArtifactStore(ctx, storage.ArtifactStoreConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}
	return store, nil
}

// newFilePipeline builds a QA pipeline over the local artifact files. Used
// by the one-shot commands (ask, eval); serve wires its own hot-reloading
// variant.
func newFilePipeline(cfg *config.Config) (*service.QAPipeline, error) {
	embedding, err := newEmbeddingClient(cfg)
	if err != nil {
		return nil, err
	}

	searcher, _, err := jobs.LoadSearcher(cfg.IndexPath(), cfg.ChunksPath(), cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	generator := service.NewAnswerGenerator(
		openai.NewGenerationClientWithModel(cfg.OpenAIAPIKey, cfg.GenerationModel))

	sink, err := qalog.NewFileSink(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open interaction log: %w", err)
	}

	return service.NewQAPipeline(
		service.NewRetriever(embedding, searcher),
		generator,
		external.NewClient(cfg.SerpAPIKey),
		qalog.New(sink),
		cfg.TopK,
		cfg.RoutingThreshold,
	), nil
}
