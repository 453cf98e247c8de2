// Package qalog appends question/answer interactions to a durable
// append-only JSON-lines log. Logging can never abort the request flow:
// failures are caught and surfaced only as a warning line.
package qalog

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/google/uuid"
)

// snippetPrefixLen bounds each retrieved-doc entry in a log record.
const snippetPrefixLen = 100

// Sink receives finished log entries. Implemented by the file logger below
// and by the Postgres interaction-log repository.
type Sink interface {
	Append(entry domain.LogEntry) error
}

// Logger fans one entry out to its sinks, swallowing sink failures.
type Logger struct {
	sinks []Sink
}

// New creates a Logger over the given sinks.
func New(sinks ...Sink) *Logger {
	return &Logger{sinks: sinks}
}

// Log appends one interaction record. It never returns an error and never
// panics; a failing sink only produces a warning.
func (l *Logger) Log(query string, retrieved []string, answer, reference, score string) {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Query:     query,
		Retrieved: truncateAll(retrieved),
		Answer:    answer,
		Reference: reference,
		Score:     score,
	}

	for _, sink := range l.sinks {
		if err := sink.Append(entry); err != nil {
			warn := domain.NewDomainErrorWithCause(domain.ErrCodeLogging, "interaction logging failed (non-fatal)", err)
			log.Printf("warning: %v", warn)
		}
	}
}

func truncateAll(docs []string) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		if len(doc) > snippetPrefixLen {
			doc = doc[:snippetPrefixLen]
		}
		out = append(out, doc)
	}
	return out
}

// FileSink appends JSON lines to a single log file.
type FileSink struct {
	path string
}

// NewFileSink creates a FileSink, creating parent directories as needed.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileSink{path: path}, nil
}

// Append writes one JSON line. The file is opened append-only per call so a
// concurrent build replacing the directory never holds the log hostage.
func (s *FileSink) Append(entry domain.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
