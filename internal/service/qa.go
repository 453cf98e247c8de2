package service

import (
	"context"
	"log"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/telemetry"
)

// ExternalClient is the low-confidence knowledge fallback. It always
// returns a displayable string.
type ExternalClient interface {
	Answer(ctx context.Context, question string) string
}

// InteractionLogger records finished interactions; implementations never
// fail the request flow.
type InteractionLogger interface {
	Log(query string, retrieved []string, answer, reference, score string)
}

// Generator produces an answer from a question and retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, question string, retrieved []string) GenerationResult
}

// QARequest is one question with its per-request knobs. A nil Threshold
// means the pipeline default; an explicit zero is honored and routes every
// non-empty retrieval to the dataset.
type QARequest struct {
	Question  string
	Mode      domain.Mode
	Threshold *float32
	TopK      int
}

// QAResponse is the pipeline's answer plus the retrieval evidence behind it.
type QAResponse struct {
	Answer    string
	Source    domain.Decision
	Degraded  bool
	Retrieved []domain.RetrievedChunk
}

// QAPipeline is the query-time control flow: retrieve, route, answer from
// the corpus or the external API, log. It is built once at startup and its
// collaborators are read-only thereafter, so it is safe for concurrent
// requests.
type QAPipeline struct {
	retriever *Retriever
	generator Generator
	external  ExternalClient
	logger    InteractionLogger

	defaultTopK      int
	defaultThreshold float32
}

// NewQAPipeline wires the pipeline. logger may not be nil; use a no-op
// logger when interaction logging is disabled.
func NewQAPipeline(retriever *Retriever, generator Generator, external ExternalClient, logger InteractionLogger, defaultTopK int, defaultThreshold float32) *QAPipeline {
	if defaultTopK < 1 {
		defaultTopK = 3
	}
	if defaultThreshold <= 0 {
		defaultThreshold = DefaultRoutingThreshold
	}
	return &QAPipeline{
		retriever:        retriever,
		generator:        generator,
		external:         external,
		logger:           logger,
		defaultTopK:      defaultTopK,
		defaultThreshold: defaultThreshold,
	}
}

// Ask runs one question through the pipeline. Retrieval failures propagate
// (the operator must build the corpus first); generation and external-API
// failures degrade to displayable messages.
func (p *QAPipeline) Ask(ctx context.Context, req QARequest) (*QAResponse, error) {
	if req.Question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if req.TopK < 1 {
		req.TopK = p.defaultTopK
	}
	threshold := p.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	mode := domain.ParseMode(string(req.Mode))

	ctx, span := telemetry.StartSpan(ctx, "qa.ask")
	defer span.End()
	span.SetTag("mode", string(mode))

	chunks, scores, err := p.retriever.Retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	retrieved := make([]domain.RetrievedChunk, len(chunks))
	for i := range chunks {
		retrieved[i] = domain.RetrievedChunk{Text: chunks[i], Score: scores[i]}
	}

	decision := Route(scores, mode, threshold)
	if mode == domain.ModeDatasetOnly {
		// Dataset-only never takes the API branch, even on weak retrieval.
		decision = domain.UseDataset
	}

	resp := &QAResponse{Source: decision, Retrieved: retrieved}
	span.SetTag("source", string(decision))
	switch decision {
	case domain.UseAPI:
		resp.Answer = p.external.Answer(ctx, req.Question)
	default:
		result := p.generator.Generate(ctx, req.Question, chunks)
		resp.Answer = result.Text
		resp.Degraded = result.Degraded
		if result.Degraded {
			log.Printf("generation degraded to fallback message: %v", result.Cause)
		}
	}

	p.logger.Log(req.Question, chunks, resp.Answer, "", "")
	return resp, nil
}
