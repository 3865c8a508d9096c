// Package pipeline turns a completed check-in call into diary entries
// (Stage A, structured extraction) and a keepsake image (Stage B, media
// synthesis). Both stages wrap external collaborators and degrade instead of
// erroring: Stage A falls back to a deterministic stub entry, Stage B leaves
// a queryable failed artifact.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"daybell/internal/entity"
	"daybell/internal/store"
)

// Store is the subset of the database layer the pipeline needs.
type Store interface {
	store.DiaryEntryStore
	store.ArtworkStore
	store.UserStore
	store.EntityStore
}

// Pipeline orchestrates both generation stages.
type Pipeline struct {
	store       Store
	extractor   Extractor
	synthesizer Synthesizer
	resolver    *entity.Resolver
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a pipeline.
func New(s Store, ex Extractor, sy Synthesizer, res *entity.Resolver, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:       s,
		extractor:   ex,
		synthesizer: sy,
		resolver:    res,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleCompletedCall is the webhook ingestor's hand-off point. It extracts
// diary entries from the transcript, persists them, resolves their people
// and tags, and kicks off one artwork synthesis for the set.
func (p *Pipeline) HandleCompletedCall(ctx context.Context, job *store.CallJob, session *store.CallSession, transcript string) {
	reference := job.ScheduledFor
	if session != nil && !session.StartedAt.IsZero() {
		reference = session.StartedAt
	}

	req := ExtractRequest{
		Text:      transcript,
		Reference: reference,
	}
	req.KnownPeople = p.knownDisplays(ctx, job.UserID, store.EntityKindPerson)
	req.KnownTags = p.knownDisplays(ctx, job.UserID, store.EntityKindTag)

	extracted := p.runExtraction(ctx, req)

	entries := make([]*store.DiaryEntry, 0, len(extracted))
	for _, v := range extracted {
		e := &store.DiaryEntry{
			ID:          uuid.New(),
			UserID:      job.UserID,
			JobID:       job.ID,
			Title:       v.Title,
			Summary:     v.Summary,
			People:      v.People,
			Tags:        v.Tags,
			Mood:        v.mood,
			Energy:      v.energy,
			Anniversary: v.Anniversary,
			HappenedAt:  v.HappenedAt,
			CreatedAt:   p.now().UTC(),
		}
		if err := p.store.CreateDiaryEntry(ctx, nil, e); err != nil {
			p.logger.Error("diary entry persist failed", "job_id", job.ID, "error", err)
			continue
		}
		entries = append(entries, e)

		if err := p.resolver.ResolveAll(ctx, job.UserID, store.EntityKindPerson, e.People); err != nil {
			p.logger.Error("person resolution failed", "entry_id", e.ID, "error", err)
		}
		if err := p.resolver.ResolveAll(ctx, job.UserID, store.EntityKindTag, e.Tags); err != nil {
			p.logger.Error("tag resolution failed", "entry_id", e.ID, "error", err)
		}
	}

	if len(entries) == 0 {
		p.logger.Error("no diary entries persisted, skipping artwork", "job_id", job.ID)
		return
	}

	// One artwork per call; the first entry anchors the set.
	if err := p.SynthesizeArtwork(ctx, entries[0]); err != nil && !errors.Is(err, store.ErrCreditsExhausted) {
		p.logger.Error("artwork synthesis failed", "entry_id", entries[0].ID, "error", err)
	}
}

// EditEntry applies a user's edit to a diary entry and reconciles the
// canonical entity counters against the old associations.
func (p *Pipeline) EditEntry(ctx context.Context, updated *store.DiaryEntry) error {
	current, err := p.store.GetDiaryEntryByID(ctx, updated.ID)
	if err != nil {
		return err
	}
	if current.UserID != updated.UserID {
		return store.ErrNotFound
	}

	// Edits touch the narrative fields only; provenance rides along unchanged.
	updated.JobID = current.JobID
	updated.Anniversary = current.Anniversary
	updated.HappenedAt = current.HappenedAt
	updated.CreatedAt = current.CreatedAt

	for _, name := range updated.People {
		if !containsName(updated.Summary, name) {
			p.logger.Warn("edited participant missing from summary", "entry_id", updated.ID, "name", name)
		}
	}

	if err := p.store.UpdateDiaryEntry(ctx, nil, updated); err != nil {
		return err
	}

	if err := p.resolver.Reconcile(ctx, updated.UserID, store.EntityKindPerson, current.People, updated.People); err != nil {
		return err
	}
	return p.resolver.Reconcile(ctx, updated.UserID, store.EntityKindTag, current.Tags, updated.Tags)
}

func (p *Pipeline) knownDisplays(ctx context.Context, userID uuid.UUID, kind store.EntityKind) []string {
	displays, err := p.store.ListEntityDisplays(ctx, userID, kind, 50)
	if err != nil {
		p.logger.Warn("known entity lookup failed", "user_id", userID, "kind", kind, "error", err)
		return nil
	}
	return displays
}

func containsName(summary, name string) bool {
	return name == "" || strings.Contains(summary, name)
}
