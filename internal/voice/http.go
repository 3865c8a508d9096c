package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider talks to the voice provider's REST API.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider client. baseURL must not end with a slash.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type dispatchRequest struct {
	PhoneNumber string      `json:"phone_number"`
	Context     CallContext `json:"context"`
}

type dispatchResponse struct {
	CallID string `json:"call_id"`
}

// Dispatch asks the provider to place the call.
func (p *HTTPProvider) Dispatch(ctx context.Context, phoneNumber string, callCtx CallContext) (string, error) {
	body, err := json.Marshal(dispatchRequest{PhoneNumber: phoneNumber, Context: callCtx})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("voice provider rejected call: status %d: %s", resp.StatusCode, detail)
	}

	var out dispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("voice provider returned invalid response: %w", err)
	}
	if out.CallID == "" {
		return "", fmt.Errorf("voice provider returned empty call id")
	}

	return out.CallID, nil
}
