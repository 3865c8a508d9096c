// Package voice abstracts the external voice-agent provider that places
// outbound check-in calls and reports their lifecycle over webhooks.
package voice

import (
	"context"
	"encoding/json"
	"time"
)

// CallContext is the conversational context handed to the voice agent for
// one call. All fields are already sanitized by the dispatcher.
type CallContext struct {
	DisplayName string `json:"display_name"`
	LocalTime   string `json:"local_time"`
	DayLabel    string `json:"day_label"`
}

// Provider places outbound calls.
type Provider interface {
	// Dispatch asks the provider to call the number. Returns the provider's
	// call id on acceptance; lifecycle events arrive later via webhook.
	Dispatch(ctx context.Context, phoneNumber string, callCtx CallContext) (string, error)
}

// EventType discriminates provider lifecycle events.
type EventType string

const (
	EventCallStarted   EventType = "call.started"
	EventCallCompleted EventType = "call.completed"
	EventCallFailed    EventType = "call.failed"
)

// Event is one provider lifecycle notification. Delivery is at-least-once,
// possibly duplicated, possibly out of order; the ingestor relies on status
// guards rather than ordering.
type Event struct {
	Type           EventType       `json:"type"`
	ExternalCallID string          `json:"call_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Disposition    string          `json:"disposition,omitempty"`
	DurationSec    int             `json:"duration_sec,omitempty"`
	Transcript     string          `json:"transcript,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}
