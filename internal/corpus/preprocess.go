// Package corpus handles the build-time path: preprocessing the raw report
// CSV, chunking, embedding, and persisting the retrieval artifacts.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/index"
)

// CombinedTextColumn is the column the builder requires after preprocessing.
const CombinedTextColumn = "combined_text"

// reportTextColumns are the report fields merged into combined_text, in
// order. When none are present every column is treated as text.
var reportTextColumns = []string{"findings", "impression", "indication", "comparison", "problems", "mesh"}

// CleanText flattens newlines and collapses runs of whitespace to single
// spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Preprocess reads the raw report CSV from r and writes a cleaned CSV to w
// with the original columns plus combined_text, dropping rows whose combined
// text is empty. Returns the number of rows kept.
func Preprocess(r io.Reader, w io.Writer) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var textIdx []int
	for _, name := range reportTextColumns {
		if i, ok := colIdx[name]; ok {
			textIdx = append(textIdx, i)
		}
	}
	if len(textIdx) == 0 {
		for i := range header {
			textIdx = append(textIdx, i)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(append(header, CombinedTextColumn)); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	kept := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read CSV row: %w", err)
		}

		var parts []string
		for _, i := range textIdx {
			if i < len(record) && strings.TrimSpace(record[i]) != "" {
				parts = append(parts, record[i])
			}
		}
		combined := CleanText(strings.Join(parts, " "))
		if combined == "" {
			continue
		}
		if err := writer.Write(append(record, combined)); err != nil {
			return 0, fmt.Errorf("failed to write CSV row: %w", err)
		}
		kept++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return kept, nil
}

// PreprocessFile runs Preprocess from inPath to outPath with an atomic
// replace of the output.
func PreprocessFile(inPath, outPath string) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open raw CSV: %w", err)
	}
	defer in.Close()

	var buf strings.Builder
	kept, err := Preprocess(in, &buf)
	if err != nil {
		return 0, err
	}
	if kept == 0 {
		return 0, domain.ErrEmptyCorpus
	}
	if err := index.WriteFileAtomic(outPath, []byte(buf.String())); err != nil {
		return 0, err
	}
	return kept, nil
}

// ReadDocuments loads the cleaned CSV and returns one document per row in
// row order. A missing combined_text column is a configuration error.
func ReadDocuments(r io.Reader) ([]domain.Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	textCol := -1
	for i, name := range header {
		if strings.ToLower(strings.TrimSpace(name)) == CombinedTextColumn {
			textCol = i
			break
		}
	}
	if textCol < 0 {
		return nil, domain.ErrMissingTextColumn
	}

	var docs []domain.Document
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if textCol >= len(record) {
			continue
		}
		text := CleanText(record[textCol])
		if text == "" {
			continue
		}
		docs = append(docs, domain.Document{ID: len(docs), Text: text})
	}
	return docs, nil
}
