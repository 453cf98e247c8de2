package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultGenerationModel is the chat model used for answer generation.
const DefaultGenerationModel = "gpt-4o-mini"

// Fixed decoding parameters. Deterministic enough for reproducible behavior
// at fixed parameters, but not guaranteed byte-identical across model
// versions.
const (
	generationMaxTokens        = 100
	generationTemperature      = 0.7
	generationTopP             = 0.9
	generationFrequencyPenalty = 2.0
)

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GenerationClient wraps the OpenAI API for short factual answer generation.
type GenerationClient struct {
	api   ChatAPI
	model string
}

// NewGenerationClient creates a GenerationClient with the default model.
func NewGenerationClient(apiKey string) *GenerationClient {
	return NewGenerationClientWithModel(apiKey, DefaultGenerationModel)
}

// NewGenerationClientWithModel creates a GenerationClient for a specific model.
func NewGenerationClientWithModel(apiKey, model string) *GenerationClient {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &GenerationClient{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// NewGenerationClientWithAPI wires a custom ChatAPI, used in tests.
func NewGenerationClientWithAPI(api ChatAPI, model string) *GenerationClient {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &GenerationClient{api: api, model: model}
}

// Complete sends the prompt with bounded output length and the fixed
// decoding parameters and returns the raw model text.
func (c *GenerationClient) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.model,
		MaxTokens:        generationMaxTokens,
		Temperature:      generationTemperature,
		TopP:             generationTopP,
		FrequencyPenalty: generationFrequencyPenalty,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
