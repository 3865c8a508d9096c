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

// GetEntity looks up a canonical entity by normalized key in the user's scope.
func (s *Store) GetEntity(ctx context.Context, userID uuid.UUID, kind store.EntityKind, key string) (*store.CanonicalEntity, error) {
	var ent store.CanonicalEntity
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, key, display, use_count, last_used_at, created_at
		FROM canonical_entities
		WHERE user_id = $1 AND kind = $2 AND key = $3
	`, userID, kind, key).Scan(
		&ent.ID, &ent.UserID, &ent.Kind, &ent.Key, &ent.Display,
		&ent.UseCount, &ent.LastUsedAt, &ent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &ent, nil
}

// CreateEntity inserts a new canonical entity seeded at use_count=1.
func (s *Store) CreateEntity(ctx context.Context, entity *store.CanonicalEntity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO canonical_entities (id, user_id, kind, key, display, use_count, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entity.ID, entity.UserID, entity.Kind, entity.Key, entity.Display,
		entity.UseCount, entity.LastUsedAt, entity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s entity %q: %w", entity.Kind, entity.Key, err)
	}
	return nil
}

// AddEntityUse increments use_count and refreshes last_used_at.
func (s *Store) AddEntityUse(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE canonical_entities
		SET use_count = use_count + 1, last_used_at = $1
		WHERE id = $2
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to add use for entity %s: %w", id, err)
	}
	return nil
}

// ReleaseEntityUse decrements use_count, flooring at zero.
func (s *Store) ReleaseEntityUse(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE canonical_entities
		SET use_count = GREATEST(use_count - 1, 0)
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to release use for entity %s: %w", id, err)
	}
	return nil
}

// TouchEntity refreshes last_used_at without changing the count.
func (s *Store) TouchEntity(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE canonical_entities SET last_used_at = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("failed to touch entity %s: %w", id, err)
	}
	return nil
}

// ListEntityDisplays returns display names ordered by recency.
func (s *Store) ListEntityDisplays(ctx context.Context, userID uuid.UUID, kind store.EntityKind, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT display
		FROM canonical_entities
		WHERE user_id = $1 AND kind = $2
		ORDER BY last_used_at DESC
		LIMIT $3
	`, userID, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list entity displays failed: %w", err)
	}
	defer rows.Close()

	var displays []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		displays = append(displays, d)
	}
	return displays, rows.Err()
}
