// Package genai holds the HTTP clients for the external generation
// collaborators: structured extraction and image synthesis.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"daybell/internal/pipeline"
)

// HTTPExtractor calls the structured-generation service.
type HTTPExtractor struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPExtractor creates an extractor client.
func NewHTTPExtractor(baseURL, apiKey string) *HTTPExtractor {
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &HTTPExtractor{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type extractResponse struct {
	Entries []pipeline.ExtractedEntry `json:"entries"`
}

// Extract sends the transcript for structured extraction.
func (e *HTTPExtractor) Extract(ctx context.Context, req pipeline.ExtractRequest) ([]pipeline.ExtractedEntry, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extractor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extractor returned status %d: %s", resp.StatusCode, detail)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("extractor returned invalid response: %w", err)
	}
	return out.Entries, nil
}
