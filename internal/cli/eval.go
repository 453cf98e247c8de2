package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/clinvector/ehrqa/internal/config"
	"github.com/clinvector/ehrqa/internal/eval"
	"github.com/spf13/cobra"
)

// EvalCmd returns the eval command
func EvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score the pipeline against a validation CSV",
		Long:  "Replay a CSV of question/gold_answer pairs through the QA pipeline and report token-F1 and BLEU per row plus corpus means",
		RunE:  runEval,
	}

	cmd.Flags().String("cases", "", "Validation CSV path (default: <data-dir>/validation.csv)")
	cmd.Flags().String("out", "", "Results CSV path (default: <data-dir>/eval_results.csv)")

	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	casesPath, _ := cmd.Flags().GetString("cases")
	if casesPath == "" {
		casesPath = filepath.Join(cfg.DataDir, "validation.csv")
	}
	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		outPath = filepath.Join(cfg.DataDir, "eval_results.csv")
	}

	f, err := os.Open(casesPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", casesPath, err)
	}
	cases, err := eval.ReadCases(f)
	f.Close()
	if err != nil {
		return err
	}
	log.Printf("read %d validation cases from %s", len(cases), casesPath)

	pipeline, err := newFilePipeline(cfg)
	if err != nil {
		return err
	}

	runner := eval.NewRunner(pipeline, cfg.TopK)
	results, summary := runner.Run(ctx, cases)

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer out.Close()
	if err := eval.WriteResults(out, results); err != nil {
		return err
	}

	log.Printf("scored %d rows (%d failed): mean F1 %.4f, mean BLEU %.4f",
		summary.Total, summary.Failed, summary.MeanF1, summary.MeanBLEU)
	fmt.Printf("results written to %s\n", outPath)
	return nil
}
