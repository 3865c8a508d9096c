package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"daybell/internal/store"
)

// Synthesizer is the external image-synthesis collaborator. The task it
// creates completes asynchronously via ArtworkEvent callbacks.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string) (taskID string, err error)
}

// ArtworkEventType discriminates synthesis callbacks.
type ArtworkEventType string

const (
	ArtworkEventReady  ArtworkEventType = "artwork.ready"
	ArtworkEventFailed ArtworkEventType = "artwork.failed"
)

// ArtworkEvent is the image provider's completion callback.
type ArtworkEvent struct {
	Type           ArtworkEventType `json:"type"`
	ProviderTaskID string           `json:"task_id"`
	URL            string           `json:"url,omitempty"`
	Reason         string           `json:"reason,omitempty"`
}

// SynthesizeArtwork runs Stage B for one diary entry: reserve a credit,
// dispatch the synthesis task, persist the pending artifact. A dispatch
// failure before the provider hands out a task id releases the credit so a
// failed attempt never permanently consumes quota. Once a task id exists the
// credit stays spent even if the provider later reports failure, since
// provider resources were actually consumed.
func (p *Pipeline) SynthesizeArtwork(ctx context.Context, entry *store.DiaryEntry) error {
	if err := p.store.ReserveImageCredit(ctx, entry.UserID); err != nil {
		if errors.Is(err, store.ErrCreditsExhausted) {
			p.logger.Info("artwork skipped, no image credits", "user_id", entry.UserID, "entry_id", entry.ID)
		}
		return err
	}

	taskID, err := p.synthesizer.Synthesize(ctx, artworkPrompt(entry))
	if err != nil {
		if relErr := p.store.ReleaseImageCredit(ctx, entry.UserID); relErr != nil {
			p.logger.Error("credit release failed after dispatch error", "user_id", entry.UserID, "error", relErr)
		}
		return fmt.Errorf("artwork synthesis dispatch failed: %w", err)
	}

	artwork := &store.Artwork{
		ID:             uuid.New(),
		EntryID:        entry.ID,
		UserID:         entry.UserID,
		Status:         store.ArtworkStatusPending,
		ProviderTaskID: taskID,
		CreatedAt:      p.now().UTC(),
	}
	if err := p.store.CreateArtwork(ctx, artwork); err != nil {
		return fmt.Errorf("failed to persist pending artwork: %w", err)
	}

	p.logger.Info("artwork synthesis dispatched", "entry_id", entry.ID, "task_id", taskID)
	return nil
}

// HandleArtworkEvent applies an image-provider callback. Unknown task ids
// and duplicate callbacks are logged and dropped.
func (p *Pipeline) HandleArtworkEvent(ctx context.Context, ev ArtworkEvent) error {
	switch ev.Type {
	case ArtworkEventReady:
		ok, err := p.store.FinishArtwork(ctx, ev.ProviderTaskID, ev.URL)
		if err != nil {
			return err
		}
		if !ok {
			p.logger.Warn("ready callback was a no-op", "task_id", ev.ProviderTaskID)
			return nil
		}
		p.logger.Info("artwork ready", "task_id", ev.ProviderTaskID)
	case ArtworkEventFailed:
		ok, err := p.store.FailArtwork(ctx, ev.ProviderTaskID, ev.Reason)
		if err != nil {
			return err
		}
		if !ok {
			p.logger.Warn("failed callback was a no-op", "task_id", ev.ProviderTaskID)
			return nil
		}
		// No credit refund: the provider task ran.
		p.logger.Warn("artwork failed", "task_id", ev.ProviderTaskID, "reason", ev.Reason)
	default:
		p.logger.Warn("unknown artwork event type dropped", "type", ev.Type)
	}
	return nil
}

func artworkPrompt(entry *store.DiaryEntry) string {
	mood, _ := MoodToWord(entry.Mood)
	return fmt.Sprintf("A %s keepsake illustration of: %s (%s)",
		mood, entry.Title, entry.HappenedAt.Format("January 2, 2006"))
}
