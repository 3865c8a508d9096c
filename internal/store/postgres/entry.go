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

const diaryEntryColumns = "id, user_id, job_id, title, summary, people, tags, mood, energy, anniversary, happened_at, created_at, updated_at"

// CreateDiaryEntry inserts an extracted entry.
func (s *Store) CreateDiaryEntry(ctx context.Context, tx store.DBTransaction, entry *store.DiaryEntry) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		INSERT INTO diary_entries (id, user_id, job_id, title, summary, people, tags, mood, energy, anniversary, happened_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`, entry.ID, entry.UserID, entry.JobID, entry.Title, entry.Summary,
		pq.Array(entry.People), pq.Array(entry.Tags), entry.Mood, entry.Energy,
		entry.Anniversary, entry.HappenedAt, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create diary entry %s: %w", entry.ID, err)
	}
	return nil
}

// GetDiaryEntryByID returns an entry by its ID.
func (s *Store) GetDiaryEntryByID(ctx context.Context, id uuid.UUID) (*store.DiaryEntry, error) {
	query := "SELECT " + diaryEntryColumns + " FROM diary_entries WHERE id = $1"
	entry, err := scanDiaryEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// ListDiaryEntries returns the user's entries, newest first.
func (s *Store) ListDiaryEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]store.DiaryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + diaryEntryColumns + `
		FROM diary_entries
		WHERE user_id = $1
		ORDER BY happened_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list diary entries failed: %w", err)
	}
	defer rows.Close()

	var entries []store.DiaryEntry
	for rows.Next() {
		entry, err := scanDiaryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list diary entries scan failed: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// UpdateDiaryEntry rewrites the editable fields.
func (s *Store) UpdateDiaryEntry(ctx context.Context, tx store.DBTransaction, entry *store.DiaryEntry) error {
	executor := s.getExecutor(tx)

	res, err := executor.ExecContext(ctx, `
		UPDATE diary_entries
		SET title = $1, summary = $2, people = $3, tags = $4, mood = $5, energy = $6, updated_at = NOW()
		WHERE id = $7 AND user_id = $8
	`, entry.Title, entry.Summary, pq.Array(entry.People), pq.Array(entry.Tags),
		entry.Mood, entry.Energy, entry.ID, entry.UserID)
	if err != nil {
		return fmt.Errorf("failed to update diary entry %s: %w", entry.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanDiaryEntry(row rowScanner) (*store.DiaryEntry, error) {
	var entry store.DiaryEntry
	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.JobID, &entry.Title, &entry.Summary,
		pq.Array(&entry.People), pq.Array(&entry.Tags), &entry.Mood, &entry.Energy,
		&entry.Anniversary, &entry.HappenedAt, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
