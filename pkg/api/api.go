// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the server.
package api

import "time"

// UpsertScheduleRequest is the request body for creating or updating the
// caller's check-in schedule.
type UpsertScheduleRequest struct {
	DisplayName string `json:"display_name,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Timezone    string `json:"timezone"`
	TimeOfDay   string `json:"time_of_day"` // "HH:MM" local wall clock
	Cadence     string `json:"cadence"`     // daily | weekdays | weekends | custom
	// CustomDays uses 0=Sunday .. 6=Saturday; required for custom cadence.
	CustomDays []int `json:"custom_days,omitempty"`
	Active     bool  `json:"active"`
}

// ScheduleResponse describes a schedule in API responses.
type ScheduleResponse struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	Timezone    string     `json:"timezone"`
	TimeOfDay   string     `json:"time_of_day"`
	Cadence     string     `json:"cadence"`
	Weekdays    []string   `json:"weekdays"`
	Active      bool       `json:"active"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
}

// CallJobResponse describes one call firing in API responses.
type CallJobResponse struct {
	ID             string    `json:"id"`
	ScheduledFor   time.Time `json:"scheduled_for"`
	Status         string    `json:"status"`
	ExternalCallID *string   `json:"external_call_id,omitempty"`
	Attempts       int       `json:"attempts"`
	Error          *string   `json:"error,omitempty"`
}

// DiaryEntryResponse describes an extracted diary entry.
type DiaryEntryResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	People      []string  `json:"people"`
	Tags        []string  `json:"tags"`
	Mood        string    `json:"mood"`
	Energy      string    `json:"energy"`
	Anniversary bool      `json:"anniversary"`
	HappenedAt  time.Time `json:"happened_at"`
}

// UpdateDiaryEntryRequest is the request body for editing an entry.
type UpdateDiaryEntryRequest struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	People  []string `json:"people"`
	Tags    []string `json:"tags"`
	Mood    string   `json:"mood"`
	Energy  string   `json:"energy"`
}

// ListDiaryEntriesResponse is the response body for listing entries.
type ListDiaryEntriesResponse struct {
	Entries []DiaryEntryResponse `json:"entries"`
}

// ArtworkResponse describes a keepsake image artifact.
type ArtworkResponse struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	URL    *string `json:"url,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
