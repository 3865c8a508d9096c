package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrCreditsExhausted is returned by ReserveImageCredit when the user has no
// image credits left.
var ErrCreditsExhausted = errors.New("image credits exhausted")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// UserStore handles user rows and the image-credit ledger.
type UserStore interface {
	// EnsureUser creates the user row if it does not exist and refreshes the
	// display name if it does.
	EnsureUser(ctx context.Context, tx DBTransaction, user *User) error

	// GetUserByID returns a user by its ID.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// ReserveImageCredit atomically takes one credit from the user's balance.
	// Returns ErrCreditsExhausted when the balance is zero; concurrent
	// reservations for the same user never oversubscribe.
	ReserveImageCredit(ctx context.Context, userID uuid.UUID) error

	// ReleaseImageCredit returns one credit. Compensating rollback only.
	ReleaseImageCredit(ctx context.Context, userID uuid.UUID) error
}

// ScheduleStore handles the persistence of check-in schedules.
type ScheduleStore interface {
	// UpsertSchedule inserts or replaces the user's schedule row.
	UpsertSchedule(ctx context.Context, tx DBTransaction, schedule *Schedule) error

	// GetScheduleByUser returns the user's schedule.
	GetScheduleByUser(ctx context.Context, userID uuid.UUID) (*Schedule, error)

	// GetScheduleByID returns a schedule by its ID.
	GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// DeactivateSchedule clears the active flag. History stays intact.
	DeactivateSchedule(ctx context.Context, userID uuid.UUID) error

	// DueSchedules returns active schedules with next_run_at <= now.
	DueSchedules(ctx context.Context, now time.Time, limit int) ([]Schedule, error)

	// AdvanceSchedule moves next_run_at from `from` to `to` in a single
	// guarded statement. Returns false when another tick already claimed the
	// slot; exactly one caller wins per slot.
	AdvanceSchedule(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error)
}

// CallJobStore handles call jobs and their forward-only status machine.
type CallJobStore interface {
	// CreateCallJob inserts the initial queued row for one firing.
	CreateCallJob(ctx context.Context, tx DBTransaction, job *CallJob) error

	// GetCallJobByID returns a job by its ID.
	GetCallJobByID(ctx context.Context, id uuid.UUID) (*CallJob, error)

	// GetCallJobByExternalID returns the job the provider call id maps to.
	GetCallJobByExternalID(ctx context.Context, externalCallID string) (*CallJob, error)

	// TransitionCallJob applies status `to` only when the current status is
	// one of `from`, in a single guarded statement. Returns false when the
	// guard did not match (duplicate or out-of-order event).
	TransitionCallJob(ctx context.Context, id uuid.UUID, from []CallJobStatus, to CallJobStatus) (bool, error)

	// MarkCallJobDialing stores the external call id alongside the dialing
	// transition. Guarded on status=queued.
	MarkCallJobDialing(ctx context.Context, id uuid.UUID, externalCallID string) (bool, error)

	// CancelCallJob moves a job to canceled. Guarded on queued/dialing: a
	// call that already connected runs to its natural end.
	CancelCallJob(ctx context.Context, id uuid.UUID) (bool, error)

	// FailCallJob moves any non-terminal job to failed with the error text.
	FailCallJob(ctx context.Context, id uuid.UUID, errMsg string) (bool, error)

	// RecordCallAttempt increments the attempt counter. Called on every
	// dispatch try regardless of outcome.
	RecordCallAttempt(ctx context.Context, id uuid.UUID) error
}

// CallSessionStore handles provider-reported call sessions.
type CallSessionStore interface {
	// CreateCallSession inserts the session row for an answered call.
	// Idempotent on job id: a duplicate started event is a no-op.
	CreateCallSession(ctx context.Context, session *CallSession) error

	// FinalizeCallSession records end time, duration, disposition and
	// provider metadata once the call completes.
	FinalizeCallSession(ctx context.Context, jobID uuid.UUID, endedAt time.Time, durationSec int, disposition string, meta []byte) error

	// GetCallSessionByJob returns the session attached to a job.
	GetCallSessionByJob(ctx context.Context, jobID uuid.UUID) (*CallSession, error)
}

// DiaryEntryStore handles extracted diary entries.
type DiaryEntryStore interface {
	CreateDiaryEntry(ctx context.Context, tx DBTransaction, entry *DiaryEntry) error

	GetDiaryEntryByID(ctx context.Context, id uuid.UUID) (*DiaryEntry, error)

	ListDiaryEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]DiaryEntry, error)

	// UpdateDiaryEntry rewrites the editable fields (title, summary, people,
	// tags, mood, energy).
	UpdateDiaryEntry(ctx context.Context, tx DBTransaction, entry *DiaryEntry) error
}

// ArtworkStore handles keepsake image artifacts.
type ArtworkStore interface {
	// CreateArtwork inserts a pending artifact holding the provider task id.
	CreateArtwork(ctx context.Context, artwork *Artwork) error

	GetArtworkByEntry(ctx context.Context, entryID uuid.UUID) (*Artwork, error)

	GetArtworkByTaskID(ctx context.Context, providerTaskID string) (*Artwork, error)

	// FinishArtwork flips pending → ready with the artifact URL. Guarded on
	// status=pending; returns false on duplicate callbacks.
	FinishArtwork(ctx context.Context, providerTaskID, url string) (bool, error)

	// FailArtwork flips pending → failed with the provider's reason.
	FailArtwork(ctx context.Context, providerTaskID, reason string) (bool, error)
}

// EntityStore handles canonical people and tags.
type EntityStore interface {
	// GetEntity looks up by normalized key within the user's scope.
	GetEntity(ctx context.Context, userID uuid.UUID, kind EntityKind, key string) (*CanonicalEntity, error)

	// CreateEntity inserts a new canonical entity seeded at use_count=1.
	CreateEntity(ctx context.Context, entity *CanonicalEntity) error

	// AddEntityUse increments use_count and refreshes last_used_at.
	AddEntityUse(ctx context.Context, id uuid.UUID, at time.Time) error

	// ReleaseEntityUse decrements use_count, flooring at zero.
	ReleaseEntityUse(ctx context.Context, id uuid.UUID) error

	// TouchEntity refreshes last_used_at without changing the count.
	TouchEntity(ctx context.Context, id uuid.UUID, at time.Time) error

	// ListEntityDisplays returns display names ordered by recency, for
	// biasing the extractor toward known people/tags.
	ListEntityDisplays(ctx context.Context, userID uuid.UUID, kind EntityKind, limit int) ([]string, error)
}
