// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// deepSeekBaseURL is the OpenAI-compatible DeepSeek endpoint.
var deepSeekBaseURL = "https://api.deepseek.com/v1/"

func clientOptions(apiKey, baseURL string, httpClient *http.Client) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// SubmitWithRetry owns retries.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return opts
}

// openAIError maps SDK errors onto RetryableError where the status allows.
func openAIError(provider string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return &RetryableError{Provider: provider, StatusCode: apiErr.StatusCode, Err: err}
		}
		return fmt.Errorf("%s returned %d: %w", provider, apiErr.StatusCode, err)
	}
	return fmt.Errorf("calling %s: %w", provider, err)
}

// OpenAIGenerator calls the OpenAI Responses API.
type OpenAIGenerator struct {
	Model     string
	MaxTokens int
	client    openai.Client
}

// NewOpenAIGenerator returns an OpenAI adapter. baseURL and httpClient are optional.
func NewOpenAIGenerator(apiKey, model, baseURL string, maxTokens int, httpClient *http.Client) *OpenAIGenerator {
	return &OpenAIGenerator{
		Model:     model,
		MaxTokens: maxTokens,
		client:    openai.NewClient(clientOptions(apiKey, baseURL, httpClient)...),
	}
}

// Name implements Generator.
func (g *OpenAIGenerator) Name() string { return "openai" }

// Submit sends prompt as the response input and returns the joined output text.
func (g *OpenAIGenerator) Submit(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model: g.Model,
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
	}
	if g.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(g.MaxTokens))
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", openAIError("OpenAI API", err)
	}

	text := resp.OutputText()
	if text == "" {
		return "", fmt.Errorf("no text content in OpenAI API response")
	}
	return stripCodeFence(text), nil
}

// DeepSeekGenerator calls DeepSeek through its OpenAI-compatible Chat
// Completions endpoint.
type DeepSeekGenerator struct {
	Model     string
	MaxTokens int
	client    openai.Client
}

// NewDeepSeekGenerator returns a DeepSeek adapter. An empty baseURL uses the
// public DeepSeek endpoint.
func NewDeepSeekGenerator(apiKey, model, baseURL string, maxTokens int, httpClient *http.Client) *DeepSeekGenerator {
	if baseURL == "" {
		baseURL = deepSeekBaseURL
	}
	return &DeepSeekGenerator{
		Model:     model,
		MaxTokens: maxTokens,
		client:    openai.NewClient(clientOptions(apiKey, baseURL, httpClient)...),
	}
}

// Name implements Generator.
func (g *DeepSeekGenerator) Name() string { return "deepseek" }

// Submit sends prompt as a single user message and returns the first choice.
func (g *DeepSeekGenerator) Submit(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    g.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if g.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", openAIError("DeepSeek API", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no text content in DeepSeek API response")
	}
	return stripCodeFence(resp.Choices[0].Message.Content), nil
}
