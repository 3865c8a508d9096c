package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"daybell/internal/cadence"
	"daybell/internal/store"
)

const scheduleColumns = "id, user_id, phone_number, timezone, minute_of_day, cadence, weekdays, active, next_run_at, created_at, updated_at"

// UpsertSchedule inserts or replaces the user's schedule row.
// One schedule per user; a second opt-in overwrites the configuration but
// keeps the row id so call history stays attached.
func (s *Store) UpsertSchedule(ctx context.Context, tx store.DBTransaction, schedule *store.Schedule) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO schedules (id, user_id, phone_number, timezone, minute_of_day, cadence, weekdays, active, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			phone_number = EXCLUDED.phone_number,
			timezone = EXCLUDED.timezone,
			minute_of_day = EXCLUDED.minute_of_day,
			cadence = EXCLUDED.cadence,
			weekdays = EXCLUDED.weekdays,
			active = EXCLUDED.active,
			next_run_at = EXCLUDED.next_run_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	var id uuid.UUID
	err := executor.QueryRowContext(ctx, query,
		schedule.ID, schedule.UserID, schedule.PhoneNumber, schedule.Timezone,
		schedule.MinuteOfDay, schedule.Cadence, int(schedule.Weekdays),
		schedule.Active, schedule.NextRunAt, schedule.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule for user %s: %w", schedule.UserID, err)
	}

	schedule.ID = id
	return nil
}

// GetScheduleByUser returns the user's schedule.
func (s *Store) GetScheduleByUser(ctx context.Context, userID uuid.UUID) (*store.Schedule, error) {
	query := "SELECT " + scheduleColumns + " FROM schedules WHERE user_id = $1"
	return s.scanSchedule(s.db.QueryRowContext(ctx, query, userID))
}

// GetScheduleByID returns a schedule by its ID.
func (s *Store) GetScheduleByID(ctx context.Context, id uuid.UUID) (*store.Schedule, error) {
	query := "SELECT " + scheduleColumns + " FROM schedules WHERE id = $1"
	return s.scanSchedule(s.db.QueryRowContext(ctx, query, id))
}

// DeactivateSchedule clears the active flag, leaving history intact.
func (s *Store) DeactivateSchedule(ctx context.Context, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE schedules SET active = FALSE, updated_at = NOW() WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate schedule for user %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DueSchedules returns active schedules whose next_run_at has passed.
func (s *Store) DueSchedules(ctx context.Context, now time.Time, limit int) ([]store.Schedule, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE active AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due schedules query failed: %w", err)
	}
	defer rows.Close()

	var schedules []store.Schedule
	for rows.Next() {
		sched, err := scanScheduleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("due schedules scan failed: %w", err)
		}
		schedules = append(schedules, *sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("due schedules rows error: %w", err)
	}

	return schedules, nil
}

// AdvanceSchedule claims one firing slot by moving next_run_at forward in a
// single guarded statement. Two ticks racing on the same slot cannot both
// match the WHERE clause, so exactly one wins.
func (s *Store) AdvanceSchedule(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE schedules
		SET next_run_at = $1, updated_at = NOW()
		WHERE id = $2 AND active AND next_run_at = $3
	`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to advance schedule %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanSchedule(row rowScanner) (*store.Schedule, error) {
	sched, err := scanScheduleRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sched, nil
}

func scanScheduleRow(row rowScanner) (*store.Schedule, error) {
	var sched store.Schedule
	var weekdays int
	err := row.Scan(
		&sched.ID, &sched.UserID, &sched.PhoneNumber, &sched.Timezone,
		&sched.MinuteOfDay, &sched.Cadence, &weekdays, &sched.Active,
		&sched.NextRunAt, &sched.CreatedAt, &sched.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sched.Weekdays = cadence.Mask(weekdays)
	return &sched, nil
}
