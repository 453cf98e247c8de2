package eval

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/service"
)

// Case is one validation row: a question and its gold answer.
type Case struct {
	Question   string
	GoldAnswer string
}

// RowResult is one scored row. Err is set when the row failed; failed rows
// carry no metrics.
type RowResult struct {
	Case
	Generated string
	Metrics   TokenMetrics
	BLEU      float64
	Err       error
}

// Summary aggregates a finished run.
type Summary struct {
	Total    int
	Failed   int
	MeanF1   float64
	MeanBLEU float64
}

// Pipeline is the slice of the QA pipeline the evaluator drives.
type Pipeline interface {
	Ask(ctx context.Context, req service.QARequest) (*service.QAResponse, error)
}

// Runner replays validation cases through the pipeline.
type Runner struct {
	pipeline Pipeline
	topK     int
}

// NewRunner creates a Runner.
func NewRunner(pipeline Pipeline, topK int) *Runner {
	if topK < 1 {
		topK = 3
	}
	return &Runner{pipeline: pipeline, topK: topK}
}

// ReadCases parses the validation CSV, which must have question and
// gold_answer columns.
func ReadCases(r io.Reader) ([]Case, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read validation header: %w", err)
	}

	qCol, gCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			qCol = i
		case "gold_answer":
			gCol = i
		}
	}
	if qCol < 0 || gCol < 0 {
		return nil, domain.NewDomainError(domain.ErrCodeConfiguration,
			"validation CSV must have 'question' and 'gold_answer' columns")
	}

	var cases []Case
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read validation row: %w", err)
		}
		if qCol >= len(record) || gCol >= len(record) {
			continue
		}
		cases = append(cases, Case{
			Question:   strings.TrimSpace(record[qCol]),
			GoldAnswer: strings.TrimSpace(record[gCol]),
		})
	}
	return cases, nil
}

// Run evaluates every case. A failing row is recorded and the batch
// continues; one bad row never aborts the run.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]RowResult, Summary) {
	results := make([]RowResult, 0, len(cases))
	summary := Summary{Total: len(cases)}

	var sumF1, sumBLEU float64
	for i, c := range cases {
		row := RowResult{Case: c}

		resp, err := r.ask(ctx, c.Question)
		if err != nil {
			row.Err = err
			summary.Failed++
			log.Printf("evaluation row %d failed: %v", i, err)
			results = append(results, row)
			continue
		}

		row.Generated = resp.Answer
		row.Metrics = TokenF1(resp.Answer, c.GoldAnswer)
		row.BLEU = BLEU(resp.Answer, c.GoldAnswer)
		sumF1 += row.Metrics.F1
		sumBLEU += row.BLEU
		results = append(results, row)
	}

	if scored := summary.Total - summary.Failed; scored > 0 {
		summary.MeanF1 = sumF1 / float64(scored)
		summary.MeanBLEU = sumBLEU / float64(scored)
	}
	return results, summary
}

// ask isolates a single row so a panicking collaborator cannot abort the
// batch either.
func (r *Runner) ask(ctx context.Context, question string) (resp *service.QAResponse, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = nil
			err = fmt.Errorf("pipeline panicked: %v", rec)
		}
	}()
	return r.pipeline.Ask(ctx, service.QARequest{
		Question: question,
		Mode:     domain.ModeDatasetOnly,
		TopK:     r.topK,
	})
}

// WriteResults writes the per-row results CSV.
func WriteResults(w io.Writer, results []RowResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"question", "generated", "gold_answer", "precision", "recall", "f1", "bleu", "error"}); err != nil {
		return err
	}

	fmtFloat := func(v float64) string {
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
	for _, row := range results {
		errText := ""
		if row.Err != nil {
			errText = row.Err.Error()
		}
		record := []string{
			row.Question,
			row.Generated,
			row.GoldAnswer,
			fmtFloat(row.Metrics.Precision),
			fmtFloat(row.Metrics.Recall),
			fmtFloat(row.Metrics.F1),
			fmtFloat(row.BLEU),
			errText,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
