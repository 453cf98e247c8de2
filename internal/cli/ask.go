package cli

import (
	"fmt"

	"github.com/clinvector/ehrqa/internal/config"
	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/service"
	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question against the local artifacts",
		Long:  "Run a single question through the QA pipeline using the locally built artifacts, without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().String("mode", string(domain.ModeHybrid), "Answering mode: hybrid, dataset or api")
	cmd.Flags().Int("top-k", 0, "Number of chunks to retrieve (default from config)")
	cmd.Flags().Float32("threshold", 0, "Routing threshold (default from config)")
	cmd.Flags().Bool("show-chunks", false, "Print the retrieved chunks and scores")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pipeline, err := newFilePipeline(cfg)
	if err != nil {
		return err
	}

	modeFlag, _ := cmd.Flags().GetString("mode")
	topK, _ := cmd.Flags().GetInt("top-k")

	var threshold *float32
	if cmd.Flags().Changed("threshold") {
		v, _ := cmd.Flags().GetFloat32("threshold")
		threshold = &v
	}

	resp, err := pipeline.Ask(ctx, service.QARequest{
		Question:  args[0],
		Mode:      domain.ParseMode(modeFlag),
		TopK:      topK,
		Threshold: threshold,
	})
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	fmt.Printf("\n(source: %s)\n", resp.Source)

	if show, _ := cmd.Flags().GetBool("show-chunks"); show {
		for i, chunk := range resp.Retrieved {
			fmt.Printf("\n[%d] score=%.4f\n%s\n", i+1, chunk.Score, chunk.Text)
		}
	}

	return nil
}
