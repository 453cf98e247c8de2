package domain

import "time"

// Document is one source report row after preprocessing. Documents are
// created once at build time and never mutated.
type Document struct {
	ID   int
	Text string
}

// Chunk is a word-bounded slice of a document's combined text. Its position
// is global across the corpus and lines up 1:1 with the embedding rows.
type Chunk struct {
	Position int
	Text     string
}

// RetrievedChunk pairs a chunk text with its similarity score for one query.
type RetrievedChunk struct {
	Text  string
	Score float32
}

// Mode selects how a question is answered.
type Mode string

const (
	ModeHybrid      Mode = "hybrid"
	ModeDatasetOnly Mode = "dataset"
	ModeAPIOnly     Mode = "api"
)

// ParseMode normalizes a mode string, defaulting to hybrid.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeDatasetOnly:
		return ModeDatasetOnly
	case ModeAPIOnly:
		return ModeAPIOnly
	default:
		return ModeHybrid
	}
}

// Decision is the terminal outcome of the routing policy.
type Decision string

const (
	UseDataset Decision = "dataset"
	UseAPI     Decision = "api"
)

// LogEntry is one immutable interaction record. Entries are append-only and
// never edited or deleted.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Retrieved []string  `json:"retrieved_docs"`
	Answer    string    `json:"answer"`
	Reference string    `json:"reference_answer,omitempty"`
	Score     string    `json:"score,omitempty"`
}
