package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinvector/ehrqa/internal/domain"
)

const (
	// chunkCharBudget bounds each retrieved chunk's contribution to the prompt.
	chunkCharBudget = 600

	// NotFoundSentence is the literal the model is instructed to emit when
	// the context does not support an answer.
	NotFoundSentence = "Information not found in the provided records."
	// EmptyAnswerFallback replaces empty or blocklisted model output.
	EmptyAnswerFallback = "Not enough information in report."
	// GenerationFailedMessage is the displayable degrade for collaborator
	// failures; generation errors never propagate to callers.
	GenerationFailedMessage = "Error during generation."
)

const answerPromptTemplate = `You are an expert radiology assistant.
Read the following clinical report carefully and answer the question in one short, factual medical sentence.
Do not copy full sentences from the report.
If the answer is not clearly mentioned, say exactly:
"%s"

--- Clinical Report ---
%s
-----------------------

Question: %s

Answer (concise and factual):`

// answerBlocklist holds raw outputs treated as non-answers.
var answerBlocklist = map[string]bool{
	"none":      true,
	"not found": true,
}

// GenerationClient invokes the text-generation collaborator.
type GenerationClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenerationResult distinguishes a clean answer from a degraded one. Text is
// always displayable; when Degraded is true the collaborator failed and
// Cause carries the underlying error for logging.
type GenerationResult struct {
	Text     string
	Degraded bool
	Cause    error
}

// AnswerGenerator builds prompts from retrieved chunks and post-processes
// model output into a clean short answer.
type AnswerGenerator struct {
	client GenerationClient
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(client GenerationClient) *AnswerGenerator {
	return &AnswerGenerator{client: client}
}

// Generate produces an answer for the question grounded in the retrieved
// chunks. It never returns an error: any collaborator failure degrades to
// GenerationFailedMessage with the Degraded flag set.
func (g *AnswerGenerator) Generate(ctx context.Context, question string, retrieved []string) GenerationResult {
	prompt := BuildPrompt(question, retrieved)

	raw, err := g.client.Complete(ctx, prompt)
	if err != nil {
		cause := domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "generation collaborator failed", err)
		return GenerationResult{Text: GenerationFailedMessage, Degraded: true, Cause: cause}
	}

	return GenerationResult{Text: PostProcess(raw)}
}

// BuildPrompt truncates each chunk to the character budget, joins them with
// a blank line as context, and fills the fixed instructional template.
func BuildPrompt(question string, retrieved []string) string {
	short := make([]string, 0, len(retrieved))
	for _, chunk := range retrieved {
		if len(chunk) > chunkCharBudget {
			chunk = chunk[:chunkCharBudget]
		}
		short = append(short, chunk)
	}
	context := strings.Join(short, "\n\n")
	return fmt.Sprintf(answerPromptTemplate, NotFoundSentence, context, question)
}

// PostProcess cleans raw model output: keep text up to the first sentence
// boundary, collapse immediately repeated tokens (the "normal normal"
// stutter artifact) while leaving legitimate non-adjacent repeats intact,
// and substitute the fallback for empty or blocklisted results.
func PostProcess(raw string) string {
	answer := strings.TrimSpace(raw)
	if i := strings.Index(answer, ". "); i >= 0 {
		answer = answer[:i]
	}
	answer = strings.TrimSpace(answer)

	var kept []string
	for _, tok := range strings.Fields(answer) {
		if len(kept) > 0 && kept[len(kept)-1] == tok {
			continue
		}
		kept = append(kept, tok)
	}
	answer = strings.Join(kept, " ")

	if answer == "" || answerBlocklist[strings.ToLower(answer)] {
		return EmptyAnswerFallback
	}
	return answer
}
