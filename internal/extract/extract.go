// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract sends batches of CV text to a text-generation service and
// returns the raw response text. Provider differences (endpoints, response
// shapes, code fences) stay inside the adapters; callers only see Generator.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// ErrUnknownProvider is returned by NewGenerator for an unrecognised provider.
var ErrUnknownProvider = errors.New("unknown provider")

// Generator submits a prompt and returns the model's text response.
type Generator interface {
	Name() string
	Submit(ctx context.Context, prompt string) (string, error)
}

// RetryableError marks a provider failure worth retrying (HTTP 429 or 5xx).
type RetryableError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s returned %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// statusError builds the error for a non-200 provider response.
func statusError(provider string, status int, body string) error {
	err := errors.New(strings.TrimSpace(body))
	if status == http.StatusTooManyRequests || status >= 500 {
		return &RetryableError{Provider: provider, StatusCode: status, Err: err}
	}
	return fmt.Errorf("%s returned %d: %w", provider, status, err)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// backoffMax caps a single wait between attempts.
var backoffMax = 30 * time.Second

// SubmitWithRetry calls g.Submit and retries *RetryableError failures up to
// maxRetries times with capped exponential backoff. Other errors return at once.
func SubmitWithRetry(ctx context.Context, g Generator, prompt string, maxRetries int) (string, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			if wait > backoffMax {
				wait = backoffMax
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		text, err := g.Submit(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var re *RetryableError
		if !errors.As(err, &re) {
			return "", err
		}
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// Default models per provider.
var defaultModels = map[types.Provider]string{
	types.ProviderClaude:   "claude-sonnet-4-5-20250929",
	types.ProviderOpenAI:   "gpt-5-mini",
	types.ProviderDeepSeek: "deepseek-chat",
	types.ProviderGemini:   "gemini-2.5-flash",
}

// NewGenerator returns the adapter for cfg.Provider. client may be nil.
func NewGenerator(cfg types.AIConfig, client *http.Client) (Generator, error) {
	if cfg.Provider == "" {
		cfg.Provider = types.ProviderClaude
	}
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = types.DefaultMaxTokens
	}

	var g Generator
	switch cfg.Provider {
	case types.ProviderClaude:
		g = &ClaudeGenerator{APIKey: cfg.APIKey, Model: model, MaxTokens: maxTokens, Client: client}
	case types.ProviderOpenAI:
		g = NewOpenAIGenerator(cfg.APIKey, model, cfg.BaseURL, maxTokens, client)
	case types.ProviderDeepSeek:
		g = NewDeepSeekGenerator(cfg.APIKey, model, cfg.BaseURL, maxTokens, client)
	case types.ProviderGemini:
		g = &GeminiGenerator{APIKey: cfg.APIKey, Model: model, MaxTokens: maxTokens, Client: client}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s", g.Name())
	}
	return g, nil
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*(.*?)\\s*```$")

// stripCodeFence removes a Markdown code fence wrapping the whole response.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
