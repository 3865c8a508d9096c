package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"daybell/internal/store"
)

// EnsureUser creates the user row if missing and refreshes the display name
// if present. Credits are untouched on conflict.
func (s *Store) EnsureUser(ctx context.Context, tx store.DBTransaction, user *store.User) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		INSERT INTO users (id, display_name, image_credits, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name
	`, user.ID, user.DisplayName, user.ImageCredits, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to ensure user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID returns a user by its ID.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	var user store.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, display_name, image_credits, created_at FROM users WHERE id = $1", id,
	).Scan(&user.ID, &user.DisplayName, &user.ImageCredits, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ReserveImageCredit atomically takes one credit. The balance guard in the
// WHERE clause is the synchronization point: two concurrent dispatches for
// the same user cannot both match the last credit.
func (s *Store) ReserveImageCredit(ctx context.Context, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET image_credits = image_credits - 1
		WHERE id = $1 AND image_credits > 0
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to reserve image credit for user %s: %w", userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrCreditsExhausted
	}
	return nil
}

// ReleaseImageCredit returns one credit. Compensating rollback only.
func (s *Store) ReleaseImageCredit(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET image_credits = image_credits + 1 WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to release image credit for user %s: %w", userID, err)
	}
	return nil
}
