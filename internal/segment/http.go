// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClassifier asks an external model service whether a line is a header.
// It POSTs {"line", "index", "total"} to URL and expects {"is_header": bool}.
type HTTPClassifier struct {
	URL    string
	Client *http.Client
}

type predictRequest struct {
	Line  string `json:"line"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

type predictResponse struct {
	IsHeader *bool `json:"is_header"`
}

// Predict implements Classifier.
func (c *HTTPClassifier) Predict(ctx context.Context, line string, index, total int) (bool, error) {
	body, err := json.Marshal(predictRequest{Line: line, Index: index, Total: total})
	if err != nil {
		return false, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return false, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, string(msg))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return false, fmt.Errorf("decoding classifier response: %w", err)
	}
	if pr.IsHeader == nil {
		return false, fmt.Errorf("classifier response missing is_header")
	}
	return *pr.IsHeader, nil
}
