// Package dispatch turns a queued call job into an outbound call at the
// voice provider.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"daybell/internal/store"
	"daybell/internal/voice"
)

// Interpolated strings embedded in the agent instruction payload are capped
// so user-controlled content cannot be used to steer the agent.
const (
	maxNameLen  = 60
	maxLabelLen = 40
)

// Dispatcher drives the voice provider for one call job.
type Dispatcher struct {
	jobs     store.CallJobStore
	provider voice.Provider
	logger   *slog.Logger
}

// New creates a dispatcher.
func New(jobs store.CallJobStore, provider voice.Provider, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{jobs: jobs, provider: provider, logger: logger}
}

// Dispatch attempts the outbound call for the job. Provider acceptance moves
// the job to dialing and stores the external call id; any rejection or
// transport error lands the job in failed. The returned error is
// informational only; callers run inside their own error boundary and must
// not let one schedule's failure affect the rest of a tick.
func (d *Dispatcher) Dispatch(ctx context.Context, job *store.CallJob, schedule *store.Schedule, displayName string) error {
	tracer := otel.Tracer("dispatcher")
	ctx, span := tracer.Start(ctx, "dispatch_call",
		trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.String("schedule.id", schedule.ID.String()),
			attribute.String("user.id", job.UserID.String()),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	defer span.End()

	if err := d.jobs.RecordCallAttempt(ctx, job.ID); err != nil {
		d.logger.Warn("failed to record call attempt", "job_id", job.ID, "error", err)
	}

	callCtx, err := BuildCallContext(displayName, schedule.Timezone, job.ScheduledFor)
	if err != nil {
		d.failJob(ctx, job, fmt.Sprintf("building call context: %v", err))
		return err
	}

	externalID, err := d.provider.Dispatch(ctx, schedule.PhoneNumber, callCtx)
	if err != nil {
		d.failJob(ctx, job, err.Error())
		return err
	}

	ok, err := d.jobs.MarkCallJobDialing(ctx, job.ID, externalID)
	if err != nil {
		return fmt.Errorf("failed to store external call id for job %s: %w", job.ID, err)
	}
	if !ok {
		// The job left queued while we were talking to the provider
		// (e.g. canceled). The call may still happen; webhooks for a
		// terminal job are dropped by the ingestor.
		d.logger.Warn("job no longer queued after provider accept", "job_id", job.ID, "external_call_id", externalID)
		return nil
	}

	d.logger.Info("call dispatched", "job_id", job.ID, "external_call_id", externalID)
	return nil
}

func (d *Dispatcher) failJob(ctx context.Context, job *store.CallJob, reason string) {
	if _, err := d.jobs.FailCallJob(ctx, job.ID, reason); err != nil {
		d.logger.Error("failed to mark call job failed", "job_id", job.ID, "error", err)
		return
	}
	d.logger.Warn("call dispatch failed", "job_id", job.ID, "reason", reason)
}

// BuildCallContext renders the greeting context for the voice agent: the
// user's name, the call time on their wall clock, and a day label where
// Saturday and Sunday collapse to "Weekend".
func BuildCallContext(displayName, tz string, at time.Time) (voice.CallContext, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return voice.CallContext{}, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	local := at.In(loc)

	label := local.Weekday().String()
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		label = "Weekend"
	}

	return voice.CallContext{
		DisplayName: SanitizeField(displayName, maxNameLen),
		LocalTime:   SanitizeField(local.Format("3:04 PM"), maxLabelLen),
		DayLabel:    SanitizeField(label, maxLabelLen),
	}, nil
}

// SanitizeField strips control characters and caps the length of a string
// before it is interpolated into an agent instruction payload.
func SanitizeField(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	if len(out) > max {
		runes := []rune(out)
		if len(runes) > max {
			out = string(runes[:max])
		}
	}
	return out
}
