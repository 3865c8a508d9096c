package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"daybell/internal/store"
)

// CreateCallSession inserts the session row for an answered call.
// ON CONFLICT (job_id) DO NOTHING makes a duplicated started event a no-op.
func (s *Store) CreateCallSession(ctx context.Context, session *store.CallSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_sessions (id, job_id, user_id, started_at, provider_meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO NOTHING
	`, session.ID, session.JobID, session.UserID, session.StartedAt, session.ProviderMeta, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create call session for job %s: %w", session.JobID, err)
	}
	return nil
}

// FinalizeCallSession records end time, duration, disposition and metadata.
func (s *Store) FinalizeCallSession(ctx context.Context, jobID uuid.UUID, endedAt time.Time, durationSec int, disposition string, meta []byte) error {
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE call_sessions
		SET ended_at = $1, duration_sec = $2, disposition = $3, provider_meta = $4
		WHERE job_id = $5
	`, endedAt, durationSec, disposition, meta, jobID)
	if err != nil {
		return fmt.Errorf("failed to finalize call session for job %s: %w", jobID, err)
	}
	return nil
}

// GetCallSessionByJob returns the session attached to a job.
func (s *Store) GetCallSessionByJob(ctx context.Context, jobID uuid.UUID) (*store.CallSession, error) {
	var sess store.CallSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, user_id, started_at, ended_at, duration_sec, disposition, provider_meta, created_at
		FROM call_sessions WHERE job_id = $1
	`, jobID).Scan(
		&sess.ID, &sess.JobID, &sess.UserID, &sess.StartedAt, &sess.EndedAt,
		&sess.DurationSec, &sess.Disposition, &sess.ProviderMeta, &sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}
