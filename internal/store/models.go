// Package store contains the database layer for daybell.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"daybell/internal/cadence"
)

// User holds the per-user data the scheduler needs: a display name for the
// call greeting and the image-credit balance consumed by artwork synthesis.
type User struct {
	ID           uuid.UUID
	DisplayName  string
	ImageCredits int
	CreatedAt    time.Time
}

// Schedule is a user's recurring check-in call configuration.
// Deactivation clears Active but never deletes the row; call history keeps
// referencing it.
type Schedule struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	PhoneNumber string
	Timezone    string // IANA name, e.g. "America/New_York"
	MinuteOfDay int    // 0..1439, local wall clock
	Cadence     cadence.Kind
	Weekdays    cadence.Mask
	Active      bool
	// NextRunAt converted into Timezone always lands exactly on MinuteOfDay
	// and on an enabled weekday. Nil until first computed.
	NextRunAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CallJobStatus is the state of one outbound call attempt.
// Transitions are forward-only: queued → dialing → in_progress →
// {completed | failed}; canceled is reachable from queued/dialing only.
type CallJobStatus string

const (
	CallJobStatusQueued     CallJobStatus = "queued"
	CallJobStatusDialing    CallJobStatus = "dialing"
	CallJobStatusInProgress CallJobStatus = "in_progress"
	CallJobStatusCompleted  CallJobStatus = "completed"
	CallJobStatusFailed     CallJobStatus = "failed"
	CallJobStatusCanceled   CallJobStatus = "canceled"
)

// Terminal reports whether no further transition is permitted.
func (s CallJobStatus) Terminal() bool {
	return s == CallJobStatusCompleted || s == CallJobStatusFailed || s == CallJobStatusCanceled
}

// CallJob is one firing of a schedule. Immutable after creation except for
// status, attempts, external call id and error message.
type CallJob struct {
	ID             uuid.UUID
	ScheduleID     uuid.UUID
	UserID         uuid.UUID
	ScheduledFor   time.Time // the slot this firing covers, UTC
	Status         CallJobStatus
	ExternalCallID *string
	Attempts       int
	ErrorMessage   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CallSession records what the voice provider reported about an answered
// call. Written only by the webhook ingestor.
type CallSession struct {
	ID           uuid.UUID
	JobID        uuid.UUID
	UserID       uuid.UUID
	StartedAt    time.Time
	EndedAt      *time.Time
	DurationSec  *int
	Disposition  *string
	ProviderMeta json.RawMessage
	CreatedAt    time.Time
}

// DiaryEntry is one extracted event from a completed check-in call.
// Every name in People appears as a substring of Summary; the extractor
// promises it and the pipeline re-validates before persisting.
type DiaryEntry struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	JobID       uuid.UUID
	Title       string
	Summary     string
	People      []string
	Tags        []string
	Mood        int // -2..2
	Energy      int // 1..5
	Anniversary bool
	HappenedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ArtworkStatus is the state of a keepsake image synthesis task.
type ArtworkStatus string

const (
	ArtworkStatusPending ArtworkStatus = "pending"
	ArtworkStatusReady   ArtworkStatus = "ready"
	ArtworkStatusFailed  ArtworkStatus = "failed"
)

// Artwork is the image synthesized for a diary entry. Created as pending at
// dispatch time, finalized by the image provider's callback.
type Artwork struct {
	ID             uuid.UUID
	EntryID        uuid.UUID
	UserID         uuid.UUID
	Status         ArtworkStatus
	ProviderTaskID string
	URL            *string
	ErrorMessage   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EntityKind discriminates canonical entities.
type EntityKind string

const (
	EntityKindPerson EntityKind = "person"
	EntityKindTag    EntityKind = "tag"
)

// CanonicalEntity is a deduplicated person or tag referenced by diary
// entries. Never deleted automatically; UseCount floors at zero.
type CanonicalEntity struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Kind       EntityKind
	Key        string // normalized lookup key
	Display    string // form as first seen
	UseCount   int
	LastUsedAt time.Time
	CreatedAt  time.Time
}
