package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"daybell/internal/store"
)

const callJobColumns = "id, schedule_id, user_id, scheduled_for, status, external_call_id, attempts, error_message, created_at, updated_at"

// CreateCallJob inserts the initial queued row for one firing.
func (s *Store) CreateCallJob(ctx context.Context, tx store.DBTransaction, job *store.CallJob) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		INSERT INTO call_jobs (id, schedule_id, user_id, scheduled_for, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, job.ID, job.ScheduleID, job.UserID, job.ScheduledFor, job.Status, job.Attempts, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create call job %s: %w", job.ID, err)
	}
	return nil
}

// GetCallJobByID returns a job by its ID.
func (s *Store) GetCallJobByID(ctx context.Context, id uuid.UUID) (*store.CallJob, error) {
	query := "SELECT " + callJobColumns + " FROM call_jobs WHERE id = $1"
	return s.scanCallJob(s.db.QueryRowContext(ctx, query, id))
}

// GetCallJobByExternalID returns the job a provider call id maps to.
func (s *Store) GetCallJobByExternalID(ctx context.Context, externalCallID string) (*store.CallJob, error) {
	query := "SELECT " + callJobColumns + " FROM call_jobs WHERE external_call_id = $1"
	return s.scanCallJob(s.db.QueryRowContext(ctx, query, externalCallID))
}

// TransitionCallJob applies the target status only when the current status
// matches the guard set. One statement, so concurrent deliveries of the same
// event cannot interleave: the second one simply matches zero rows.
func (s *Store) TransitionCallJob(ctx context.Context, id uuid.UUID, from []store.CallJobStatus, to store.CallJobStatus) (bool, error) {
	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE call_jobs
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, pq.Array(states))
	if err != nil {
		return false, fmt.Errorf("failed to transition call job %s to %s: %w", id, to, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkCallJobDialing stores the external call id alongside the dialing
// transition. Guarded on status=queued.
func (s *Store) MarkCallJobDialing(ctx context.Context, id uuid.UUID, externalCallID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE call_jobs
		SET status = $1, external_call_id = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, store.CallJobStatusDialing, externalCallID, id, store.CallJobStatusQueued)
	if err != nil {
		return false, fmt.Errorf("failed to mark call job %s dialing: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CancelCallJob moves a job to canceled. Guarded on queued/dialing; a call
// that already connected is left to run out and zero rows match.
func (s *Store) CancelCallJob(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE call_jobs
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, store.CallJobStatusCanceled, id, pq.Array([]string{
		string(store.CallJobStatusQueued),
		string(store.CallJobStatusDialing),
	}))
	if err != nil {
		return false, fmt.Errorf("failed to cancel call job %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FailCallJob moves any non-terminal job to failed with the error text.
func (s *Store) FailCallJob(ctx context.Context, id uuid.UUID, errMsg string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE call_jobs
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)
	`, store.CallJobStatusFailed, errMsg, id, pq.Array([]string{
		string(store.CallJobStatusQueued),
		string(store.CallJobStatusDialing),
		string(store.CallJobStatusInProgress),
	}))
	if err != nil {
		return false, fmt.Errorf("failed to fail call job %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordCallAttempt increments the attempt counter.
func (s *Store) RecordCallAttempt(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE call_jobs SET attempts = attempts + 1, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to record attempt for call job %s: %w", id, err)
	}
	return nil
}

func (s *Store) scanCallJob(row rowScanner) (*store.CallJob, error) {
	var job store.CallJob
	err := row.Scan(
		&job.ID, &job.ScheduleID, &job.UserID, &job.ScheduledFor,
		&job.Status, &job.ExternalCallID, &job.Attempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}
