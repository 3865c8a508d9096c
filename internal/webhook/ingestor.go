// Package webhook applies voice-provider lifecycle events to call jobs and
// sessions. Events arrive at-least-once and in any order; every mutation is
// guarded by the job's current status, so duplicates and reordering degrade
// to logged no-ops.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daybell/internal/store"
	"daybell/internal/voice"
)

// Store is the subset of the database layer the ingestor needs.
type Store interface {
	store.CallJobStore
	store.CallSessionStore
}

// CompletionHandler receives the job and session of a successfully completed
// call. Invoked on its own goroutine; webhook acknowledgment never waits on
// downstream generation.
type CompletionHandler interface {
	HandleCompletedCall(ctx context.Context, job *store.CallJob, session *store.CallSession, transcript string)
}

// Dispositions the provider reports on a completed event that still mean the
// check-in did not happen.
var adverseDispositions = map[string]bool{
	"no_answer": true,
	"busy":      true,
	"voicemail": true,
	"declined":  true,
}

// Ingestor applies provider events.
type Ingestor struct {
	store      Store
	completion CompletionHandler
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an ingestor.
func New(s Store, completion CompletionHandler, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: s, completion: completion, logger: logger, now: time.Now}
}

// Ingest applies one provider event. Anomalies (unknown call id, duplicate
// or out-of-order events) are logged and dropped; the provider retries on
// non-2xx, and a retry storm over a stale event helps nobody. Only storage
// errors propagate.
func (i *Ingestor) Ingest(ctx context.Context, ev voice.Event) error {
	job, err := i.store.GetCallJobByExternalID(ctx, ev.ExternalCallID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			i.logger.Warn("event for unknown call id dropped", "call_id", ev.ExternalCallID, "type", ev.Type)
			return nil
		}
		return err
	}

	switch ev.Type {
	case voice.EventCallStarted:
		return i.applyStarted(ctx, job, ev)
	case voice.EventCallCompleted:
		return i.applyCompleted(ctx, job, ev)
	case voice.EventCallFailed:
		return i.applyFailed(ctx, job, ev)
	default:
		i.logger.Warn("unknown event type dropped", "call_id", ev.ExternalCallID, "type", ev.Type)
		return nil
	}
}

func (i *Ingestor) applyStarted(ctx context.Context, job *store.CallJob, ev voice.Event) error {
	ok, err := i.store.TransitionCallJob(ctx, job.ID,
		[]store.CallJobStatus{store.CallJobStatusQueued, store.CallJobStatusDialing},
		store.CallJobStatusInProgress)
	if err != nil {
		return err
	}
	if !ok {
		i.logger.Info("started event was a no-op", "job_id", job.ID, "status", job.Status)
		return nil
	}

	startedAt := ev.OccurredAt
	if startedAt.IsZero() {
		startedAt = i.now().UTC()
	}
	return i.store.CreateCallSession(ctx, &store.CallSession{
		ID:           uuid.New(),
		JobID:        job.ID,
		UserID:       job.UserID,
		StartedAt:    startedAt,
		ProviderMeta: ev.Metadata,
		CreatedAt:    i.now().UTC(),
	})
}

func (i *Ingestor) applyCompleted(ctx context.Context, job *store.CallJob, ev voice.Event) error {
	if adverseDispositions[ev.Disposition] {
		ok, err := i.store.FailCallJob(ctx, job.ID, "call ended without check-in: "+ev.Disposition)
		if err != nil {
			return err
		}
		if !ok {
			i.logger.Info("adverse completion was a no-op", "job_id", job.ID, "status", job.Status)
		}
		return nil
	}

	// Tolerate a lost started event: completing straight from dialing is
	// legal, the status guard is the ordering authority.
	ok, err := i.store.TransitionCallJob(ctx, job.ID,
		[]store.CallJobStatus{store.CallJobStatusQueued, store.CallJobStatusDialing, store.CallJobStatusInProgress},
		store.CallJobStatusCompleted)
	if err != nil {
		return err
	}
	if !ok {
		i.logger.Info("completed event was a no-op", "job_id", job.ID, "status", job.Status)
		return nil
	}

	endedAt := ev.OccurredAt
	if endedAt.IsZero() {
		endedAt = i.now().UTC()
	}
	if err := i.store.FinalizeCallSession(ctx, job.ID, endedAt, ev.DurationSec, ev.Disposition, ev.Metadata); err != nil {
		return err
	}

	session, err := i.store.GetCallSessionByJob(ctx, job.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// Hand off on a fresh goroutine with a detached context: acknowledgment
	// latency must not depend on generation latency.
	jobCopy := *job
	jobCopy.Status = store.CallJobStatusCompleted
	go i.completion.HandleCompletedCall(context.WithoutCancel(ctx), &jobCopy, session, ev.Transcript)

	i.logger.Info("call completed", "job_id", job.ID, "duration_sec", ev.DurationSec)
	return nil
}

func (i *Ingestor) applyFailed(ctx context.Context, job *store.CallJob, ev voice.Event) error {
	reason := ev.Reason
	if reason == "" {
		reason = "provider reported failure"
	}
	ok, err := i.store.FailCallJob(ctx, job.ID, reason)
	if err != nil {
		return err
	}
	if !ok {
		i.logger.Info("failed event was a no-op", "job_id", job.ID, "status", job.Status)
		return nil
	}
	i.logger.Info("call failed", "job_id", job.ID, "reason", reason)
	return nil
}
