package cli

import (
	"fmt"
	"log"

	"github.com/clinvector/ehrqa/internal/config"
	"github.com/clinvector/ehrqa/internal/corpus"
	"github.com/clinvector/ehrqa/internal/index"
	"github.com/spf13/cobra"
)

// IndexCmd returns the index command
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the similarity index from the embedding artifacts",
		Long:  "Load the embedding and chunk artifacts, build the exact nearest-neighbor index and persist it stamped with the embedding model",
		RunE:  runIndex,
	}

	cmd.Flags().String("metric", string(index.MetricCosine), "Similarity metric: cosine or l2")
	cmd.Flags().Bool("push", false, "Upload the index artifact to S3 after the build")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	metricFlag, _ := cmd.Flags().GetString("metric")
	var metric index.Metric
	switch index.Metric(metricFlag) {
	case index.MetricCosine:
		metric = index.MetricCosine
	case index.MetricL2:
		metric = index.MetricL2
	default:
		return fmt.Errorf("unknown metric %q (want cosine or l2)", metricFlag)
	}

	store, err := corpus.LoadStore(cfg.EmbeddingsPath(), cfg.ChunksPath())
	if err != nil {
		return err
	}

	idx, err := index.Build(store.Model, metric, store.Vectors)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	if err := idx.Save(cfg.IndexPath()); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	log.Printf("indexed %d vectors (%s) into %s", idx.Len(), metric, cfg.IndexPath())

	if push, _ := cmd.Flags().GetBool("push"); push {
		artifacts, err := newArtifactStore(ctx, cfg)
		if err != nil {
			return err
		}
		if artifacts == nil {
			return fmt.Errorf("--push requires the S3 configuration")
		}
		if err := artifacts.PushArtifacts(ctx, cfg.IndexPath()); err != nil {
			return err
		}
		log.Printf("pushed index to bucket %s", cfg.S3Bucket)
	}

	return nil
}
