package cli

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/clinvector/ehrqa/internal/config"
	"github.com/clinvector/ehrqa/internal/corpus"
	"github.com/spf13/cobra"
)

// PreprocessCmd returns the preprocess command
func PreprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Combine report sections into one text column",
		Long:  "Read the raw report CSV export, merge the narrative sections of each report into a combined_text column and drop rows with no usable text",
		RunE:  runPreprocess,
	}

	cmd.Flags().String("in", "", "Input CSV path (default: <data-dir>/reports.csv)")
	cmd.Flags().String("out", "", "Output CSV path (default: <data-dir>/reports_preprocessed.csv)")

	return cmd
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	inPath, _ := cmd.Flags().GetString("in")
	if inPath == "" {
		inPath = filepath.Join(cfg.DataDir, "reports.csv")
	}
	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		outPath = filepath.Join(cfg.DataDir, "reports_preprocessed.csv")
	}

	n, err := corpus.PreprocessFile(inPath, outPath)
	if err != nil {
		return fmt.Errorf("preprocess failed: %w", err)
	}

	log.Printf("preprocessed %d reports into %s", n, outPath)
	return nil
}
