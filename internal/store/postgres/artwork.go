package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"daybell/internal/store"
)

const artworkColumns = "id, entry_id, user_id, status, provider_task_id, url, error_message, created_at, updated_at"

// CreateArtwork inserts a pending artifact holding the provider task id.
func (s *Store) CreateArtwork(ctx context.Context, artwork *store.Artwork) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artworks (id, entry_id, user_id, status, provider_task_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, artwork.ID, artwork.EntryID, artwork.UserID, artwork.Status, artwork.ProviderTaskID, artwork.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create artwork for entry %s: %w", artwork.EntryID, err)
	}
	return nil
}

// GetArtworkByEntry returns the artifact attached to a diary entry.
func (s *Store) GetArtworkByEntry(ctx context.Context, entryID uuid.UUID) (*store.Artwork, error) {
	query := "SELECT " + artworkColumns + " FROM artworks WHERE entry_id = $1"
	return s.scanArtwork(s.db.QueryRowContext(ctx, query, entryID))
}

// GetArtworkByTaskID returns the artifact a provider task id maps to.
func (s *Store) GetArtworkByTaskID(ctx context.Context, providerTaskID string) (*store.Artwork, error) {
	query := "SELECT " + artworkColumns + " FROM artworks WHERE provider_task_id = $1"
	return s.scanArtwork(s.db.QueryRowContext(ctx, query, providerTaskID))
}

// FinishArtwork flips pending → ready with the artifact URL. The status
// guard makes duplicated callbacks no-ops.
func (s *Store) FinishArtwork(ctx context.Context, providerTaskID, url string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE artworks
		SET status = $1, url = $2, updated_at = NOW()
		WHERE provider_task_id = $3 AND status = $4
	`, store.ArtworkStatusReady, url, providerTaskID, store.ArtworkStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to finish artwork %s: %w", providerTaskID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FailArtwork flips pending → failed with the provider's reason.
func (s *Store) FailArtwork(ctx context.Context, providerTaskID, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE artworks
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE provider_task_id = $3 AND status = $4
	`, store.ArtworkStatusFailed, reason, providerTaskID, store.ArtworkStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to fail artwork %s: %w", providerTaskID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) scanArtwork(row rowScanner) (*store.Artwork, error) {
	var art store.Artwork
	err := row.Scan(
		&art.ID, &art.EntryID, &art.UserID, &art.Status, &art.ProviderTaskID,
		&art.URL, &art.ErrorMessage, &art.CreatedAt, &art.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &art, nil
}
