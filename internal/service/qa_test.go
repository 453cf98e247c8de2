package service

import (
	"context"
	"testing"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vec []float32
}

func (s stubEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return s.vec, nil
}

type stubSearcher struct {
	chunks []string
	hits   []index.Hit
}

func (s stubSearcher) SearchChunks(_ context.Context, _ []float32, _ int) ([]string, []index.Hit, error) {
	if len(s.hits) == 0 && len(s.chunks) == 0 {
		return nil, nil, domain.ErrIndexNotBuilt
	}
	out := make([]string, len(s.hits))
	for i, hit := range s.hits {
		out[i] = s.chunks[hit.Position]
	}
	return out, s.hits, nil
}

type stubExternal struct {
	answer string
	called bool
}

func (s *stubExternal) Answer(context.Context, string) string {
	s.called = true
	return s.answer
}

type recordingLogger struct {
	queries []string
	answers []string
}

func (r *recordingLogger) Log(query string, _ []string, answer, _, _ string) {
	r.queries = append(r.queries, query)
	r.answers = append(r.answers, answer)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, question string, retrieved []string) GenerationResult {
	args := m.Called(ctx, question, retrieved)
	return args.Get(0).(GenerationResult)
}

func newTestPipeline(hits []index.Hit, chunks []string, gen Generator, ext ExternalClient, logger InteractionLogger) *QAPipeline {
	retriever := NewRetriever(stubEmbedder{vec: []float32{1}}, stubSearcher{chunks: chunks, hits: hits})
	return NewQAPipeline(retriever, gen, ext, logger, 3, 0.4)
}

func TestAsk_StrongRetrievalUsesDataset(t *testing.T) {
	gen := new(mockGenerator)
	ext := &stubExternal{answer: "api answer"}
	logger := &recordingLogger{}

	hits := []index.Hit{{Position: 0, Score: 0.9}, {Position: 1, Score: 0.5}}
	chunks := []string{"lungs clear", "heart normal"}
	gen.On("Generate", mock.Anything, "is it clear?", chunks).
		Return(GenerationResult{Text: "The lungs are clear"})

	pipeline := newTestPipeline(hits, chunks, gen, ext, logger)
	resp, err := pipeline.Ask(context.Background(), QARequest{Question: "is it clear?", Mode: domain.ModeHybrid})
	require.NoError(t, err)

	assert.Equal(t, domain.UseDataset, resp.Source)
	assert.Equal(t, "The lungs are clear", resp.Answer)
	assert.False(t, ext.called)
	require.Len(t, resp.Retrieved, 2)
	assert.Equal(t, float32(0.9), resp.Retrieved[0].Score)
	assert.Equal(t, []string{"is it clear?"}, logger.queries)
	gen.AssertExpectations(t)
}

func TestAsk_WeakRetrievalFallsBackToAPI(t *testing.T) {
	gen := new(mockGenerator)
	ext := &stubExternal{answer: "encyclopedia says"}
	logger := &recordingLogger{}

	hits := []index.Hit{{Position: 0, Score: 0.2}, {Position: 1, Score: 0.1}}
	pipeline := newTestPipeline(hits, []string{"a", "b"}, gen, ext, logger)

	threshold := float32(0.4)
	resp, err := pipeline.Ask(context.Background(), QARequest{Question: "q", Mode: domain.ModeHybrid, Threshold: &threshold})
	require.NoError(t, err)

	assert.Equal(t, domain.UseAPI, resp.Source)
	assert.Equal(t, "encyclopedia says", resp.Answer)
	assert.True(t, ext.called)
	gen.AssertNotCalled(t, "Generate")
	assert.Equal(t, []string{"encyclopedia says"}, logger.answers)
}

func TestAsk_ExplicitZeroThresholdAlwaysUsesDataset(t *testing.T) {
	gen := new(mockGenerator)
	ext := &stubExternal{answer: "api"}

	// Scores far below the pipeline default of 0.4; a zero threshold must
	// not be mistaken for "unset".
	hits := []index.Hit{{Position: 0, Score: 0.05}}
	gen.On("Generate", mock.Anything, "q", []string{"chunk"}).
		Return(GenerationResult{Text: "dataset answer"})

	pipeline := newTestPipeline(hits, []string{"chunk"}, gen, ext, &recordingLogger{})

	zero := float32(0)
	resp, err := pipeline.Ask(context.Background(), QARequest{Question: "q", Mode: domain.ModeHybrid, Threshold: &zero})
	require.NoError(t, err)

	assert.Equal(t, domain.UseDataset, resp.Source)
	assert.Equal(t, "dataset answer", resp.Answer)
	assert.False(t, ext.called)
	gen.AssertExpectations(t)
}

func TestAsk_APIOnlyIgnoresStrongScores(t *testing.T) {
	gen := new(mockGenerator)
	ext := &stubExternal{answer: "api"}

	hits := []index.Hit{{Position: 0, Score: 0.99}}
	pipeline := newTestPipeline(hits, []string{"chunk"}, gen, ext, &recordingLogger{})

	resp, err := pipeline.Ask(context.Background(), QARequest{Question: "q", Mode: domain.ModeAPIOnly})
	require.NoError(t, err)
	assert.Equal(t, domain.UseAPI, resp.Source)
	gen.AssertNotCalled(t, "Generate")
}

func TestAsk_DatasetOnlyNeverCallsAPI(t *testing.T) {
	gen := new(mockGenerator)
	ext := &stubExternal{answer: "api"}

	// Scores below threshold would normally route to the API.
	hits := []index.Hit{{Position: 0, Score: 0.05}}
	gen.On("Generate", mock.Anything, "q", []string{"chunk"}).
		Return(GenerationResult{Text: "dataset answer"})

	pipeline := newTestPipeline(hits, []string{"chunk"}, gen, ext, &recordingLogger{})
	resp, err := pipeline.Ask(context.Background(), QARequest{Question: "q", Mode: domain.ModeDatasetOnly})
	require.NoError(t, err)

	assert.Equal(t, domain.UseDataset, resp.Source)
	assert.False(t, ext.called)
}

func TestAsk_DegradedGenerationStillAnswers(t *testing.T) {
	gen := new(mockGenerator)
	logger := &recordingLogger{}

	hits := []index.Hit{{Position: 0, Score: 0.9}}
	gen.On("Generate", mock.Anything, "q", []string{"chunk"}).
		Return(GenerationResult{Text: GenerationFailedMessage, Degraded: true, Cause: domain.NewDomainError(domain.ErrCodeGeneration, "boom")})

	pipeline := newTestPipeline(hits, []string{"chunk"}, gen, &stubExternal{}, logger)
	resp, err := pipeline.Ask(context.Background(), QARequest{Question: "q"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, GenerationFailedMessage, resp.Answer)
	assert.Equal(t, []string{GenerationFailedMessage}, logger.answers)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	pipeline := newTestPipeline(nil, nil, new(mockGenerator), &stubExternal{}, &recordingLogger{})
	_, err := pipeline.Ask(context.Background(), QARequest{Question: ""})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestRetriever_ParallelSlicesAndOrdering(t *testing.T) {
	hits := []index.Hit{{Position: 2, Score: 0.8}, {Position: 0, Score: 0.3}}
	retriever := NewRetriever(stubEmbedder{vec: []float32{1}}, stubSearcher{chunks: []string{"a", "b", "c"}, hits: hits})

	chunks, scores, err := retriever.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, chunks)
	assert.Equal(t, []float32{0.8, 0.3}, scores)
}

func TestRetriever_NotBuilt(t *testing.T) {
	retriever := NewRetriever(stubEmbedder{vec: []float32{1}}, stubSearcher{})
	_, _, err := retriever.Retrieve(context.Background(), "q", 3)
	assert.ErrorIs(t, err, domain.ErrIndexNotBuilt)
}
