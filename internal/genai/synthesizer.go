package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSynthesizer calls the image-synthesis service. Tasks complete
// asynchronously via the artwork webhook.
type HTTPSynthesizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSynthesizer creates a synthesizer client.
func NewHTTPSynthesizer(baseURL, apiKey string) *HTTPSynthesizer {
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &HTTPSynthesizer{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type synthesizeRequest struct {
	Prompt string `json:"prompt"`
}

type synthesizeResponse struct {
	TaskID string `json:"task_id"`
}

// Synthesize submits an image-synthesis task and returns the provider's
// task id.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(synthesizeRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/images", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("image provider returned status %d: %s", resp.StatusCode, detail)
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("image provider returned invalid response: %w", err)
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("image provider returned empty task id")
	}
	return out.TaskID, nil
}
