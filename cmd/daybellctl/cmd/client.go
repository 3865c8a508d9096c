package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"daybell/pkg/api"
)

// Client handles API calls to the daybell server.
type Client struct {
	BaseURL    string
	UserID     string
	HTTPClient *http.Client
}

// NewClient creates a new client acting as the given user.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		BaseURL: baseURL,
		UserID:  userID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *Client) do(method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("X-User-ID", c.UserID)
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

// UpsertSchedule sends PUT /v1/schedule to create or replace the schedule.
func (c *Client) UpsertSchedule(req api.UpsertScheduleRequest) (*api.ScheduleResponse, error) {
	respBody, err := c.do(http.MethodPut, "/v1/schedule", req)
	if err != nil {
		return nil, err
	}

	var result api.ScheduleResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// GetSchedule sends GET /v1/schedule to retrieve the current schedule.
func (c *Client) GetSchedule() (*api.ScheduleResponse, error) {
	respBody, err := c.do(http.MethodGet, "/v1/schedule", nil)
	if err != nil {
		return nil, err
	}

	var result api.ScheduleResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// DeactivateSchedule sends DELETE /v1/schedule to turn check-ins off.
func (c *Client) DeactivateSchedule() error {
	_, err := c.do(http.MethodDelete, "/v1/schedule", nil)
	return err
}

// ListEntries sends GET /v1/entries to retrieve recent diary entries.
func (c *Client) ListEntries(limit int) ([]api.DiaryEntryResponse, error) {
	respBody, err := c.do(http.MethodGet, fmt.Sprintf("/v1/entries?limit=%d", limit), nil)
	if err != nil {
		return nil, err
	}

	var result api.ListDiaryEntriesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Entries, nil
}

// UpdateEntry sends PUT /v1/entries/{id} to edit a diary entry.
func (c *Client) UpdateEntry(entryID string, req api.UpdateDiaryEntryRequest) (*api.DiaryEntryResponse, error) {
	respBody, err := c.do(http.MethodPut, fmt.Sprintf("/v1/entries/%s", entryID), req)
	if err != nil {
		return nil, err
	}

	var result api.DiaryEntryResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// GetEntryArtwork sends GET /v1/entries/{id}/artwork to retrieve the keepsake image.
func (c *Client) GetEntryArtwork(entryID string) (*api.ArtworkResponse, error) {
	respBody, err := c.do(http.MethodGet, fmt.Sprintf("/v1/entries/%s/artwork", entryID), nil)
	if err != nil {
		return nil, err
	}

	var result api.ArtworkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// CancelCallJob sends POST /v1/calls/{id}/cancel to cancel a pending call.
func (c *Client) CancelCallJob(callID string) (*api.CallJobResponse, error) {
	respBody, err := c.do(http.MethodPost, fmt.Sprintf("/v1/calls/%s/cancel", callID), nil)
	if err != nil {
		return nil, err
	}

	var result api.CallJobResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// GetCallJob sends GET /v1/calls/{id} to retrieve a call's state.
func (c *Client) GetCallJob(callID string) (*api.CallJobResponse, error) {
	respBody, err := c.do(http.MethodGet, fmt.Sprintf("/v1/calls/%s", callID), nil)
	if err != nil {
		return nil, err
	}

	var result api.CallJobResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}
