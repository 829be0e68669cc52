// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// ErrNotFound is matched by a StatusError carrying HTTP 404.
var ErrNotFound = errors.New("not found")

// StatusError is returned when a JSON endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// JSONClient issues rate-limited GET requests against a JSON API.
type JSONClient struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	Header     http.Header
}

// NewJSONClient returns a client allowing rps requests per second with a
// burst of one. A non-positive rps disables rate limiting.
func NewJSONClient(httpClient *http.Client, rps float64, maxRetries int) *JSONClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &JSONClient{HTTP: httpClient, MaxRetries: maxRetries, Header: http.Header{}}
	if rps > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// GetJSON fetches url and decodes the JSON body into out. It waits on the
// rate limiter, retries through DoWithRetry, and maps non-2xx statuses to
// *StatusError with up to 512 bytes of the body.
func (c *JSONClient) GetJSON(ctx context.Context, url string, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("GET %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
