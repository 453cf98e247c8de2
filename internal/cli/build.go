package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/clinvector/ehrqa/internal/config"
	"github.com/clinvector/ehrqa/internal/corpus"
	"github.com/clinvector/ehrqa/internal/database"
	"github.com/clinvector/ehrqa/internal/repository"
	"github.com/spf13/cobra"
)

// BuildCmd returns the build command
func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Chunk the corpus and embed every chunk",
		Long:  "Read the preprocessed report CSV, split each report into word-bounded chunks, embed every chunk and write the line-aligned chunk and embedding artifacts",
		RunE:  runBuild,
	}

	cmd.Flags().String("in", "", "Preprocessed CSV path (default: <data-dir>/reports_preprocessed.csv)")
	cmd.Flags().Bool("load-db", false, "Also load the chunks and embeddings into Postgres")
	cmd.Flags().Bool("push", false, "Upload the artifacts to S3 after the build")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	inPath, _ := cmd.Flags().GetString("in")
	if inPath == "" {
		inPath = filepath.Join(cfg.DataDir, "reports_preprocessed.csv")
	}

	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", inPath, err)
	}
	docs, err := corpus.ReadDocuments(f)
	f.Close()
	if err != nil {
		return err
	}
	log.Printf("read %d documents from %s", len(docs), inPath)

	client, err := newEmbeddingClient(cfg)
	if err != nil {
		return err
	}

	builder := corpus.NewBuilder(client, cfg.EmbeddingModel, cfg.ChunkWords)
	store, err := builder.Build(ctx, docs)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if err := store.Save(cfg.EmbeddingsPath(), cfg.ChunksPath()); err != nil {
		return fmt.Errorf("failed to save artifacts: %w", err)
	}
	log.Printf("built %d chunks (%d dimensions) into %s", len(store.Chunks), store.Dimension, cfg.ArtifactDir)

	if loadDB, _ := cmd.Flags().GetBool("load-db"); loadDB {
		if !cfg.HasDatabase() {
			return fmt.Errorf("--load-db requires EHRQA_DATABASE_URL")
		}
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return err
		}

		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		chunkStore := repository.NewChunkStore(pool)
		if err := chunkStore.ReplaceCorpus(ctx, store.Model, store.Chunks, store.Vectors); err != nil {
			return fmt.Errorf("failed to load corpus into database: %w", err)
		}
		log.Printf("loaded %d chunks into Postgres", len(store.Chunks))
	}

	if push, _ := cmd.Flags().GetBool("push"); push {
		artifacts, err := newArtifactStore(ctx, cfg)
		if err != nil {
			return err
		}
		if artifacts == nil {
			return fmt.Errorf("--push requires the S3 configuration")
		}
		if err := artifacts.PushArtifacts(ctx, cfg.EmbeddingsPath(), cfg.ChunksPath()); err != nil {
			return err
		}
		log.Printf("pushed artifacts to bucket %s", cfg.S3Bucket)
	}

	return nil
}
