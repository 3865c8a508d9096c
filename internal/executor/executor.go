// Package executor runs the periodic tick that fires due check-in schedules.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"daybell/internal/cadence"
	"daybell/internal/dispatch"
	"daybell/internal/store"
)

// Store is the subset of the database layer the executor needs.
type Store interface {
	store.ScheduleStore
	store.CallJobStore
	store.UserStore
}

// Config holds executor tuning knobs.
type Config struct {
	Interval    time.Duration // tick interval (default: 60s)
	BatchSize   int           // max due schedules per tick (default: 100)
	Concurrency int           // parallel dispatches (default: 4)
}

// TickStats are the aggregate counts one tick reports.
type TickStats struct {
	Processed int // slots claimed and handed to the dispatcher
	Skipped   int // slots another tick claimed first
	Failed    int // schedules whose advance or job creation errored
}

// Executor finds due schedules on a fixed interval and fires them. It holds
// no cross-tick memory; the schedule table is the only coordination point,
// so restarts and overlapping ticks are safe.
type Executor struct {
	store      Store
	dispatcher *dispatch.Dispatcher
	config     Config
	logger     *slog.Logger
	now        func() time.Time

	processedCtr metric.Int64Counter
	skippedCtr   metric.Int64Counter
	failedCtr    metric.Int64Counter

	wg   sync.WaitGroup
	sem  chan struct{}
	done chan struct{}
}

// New creates an executor.
func New(s Store, d *dispatch.Dispatcher, config Config, logger *slog.Logger) *Executor {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}

	meter := otel.Meter("daybell-executor")
	processed, _ := meter.Int64Counter("daybell.executor.processed",
		metric.WithDescription("Schedule slots claimed and dispatched"))
	skipped, _ := meter.Int64Counter("daybell.executor.skipped",
		metric.WithDescription("Schedule slots lost to a concurrent tick"))
	failed, _ := meter.Int64Counter("daybell.executor.failed",
		metric.WithDescription("Schedules that errored during a tick"))

	return &Executor{
		store:        s,
		dispatcher:   d,
		config:       config,
		logger:       logger,
		now:          time.Now,
		processedCtr: processed,
		skippedCtr:   skipped,
		failedCtr:    failed,
		sem:          make(chan struct{}, config.Concurrency),
		done:         make(chan struct{}),
	}
}

// Run starts the tick loop. It blocks until the context is cancelled, then
// waits for in-flight dispatches to finish.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor starting", "interval", e.config.Interval)

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("executor stopping, draining in-flight dispatches")
			e.wg.Wait()
			close(e.done)
			return ctx.Err()
		case <-ticker.C:
			stats := e.Tick(ctx, e.now().UTC())
			if stats.Processed+stats.Skipped+stats.Failed > 0 {
				e.logger.Info("tick finished",
					"processed", stats.Processed,
					"skipped", stats.Skipped,
					"failed", stats.Failed)
			}
		}
	}
}

// Done returns a channel closed when the executor has fully stopped.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

// Tick processes every due schedule once. Each schedule runs inside its own
// error boundary: a bad timezone or a provider outage on one user's schedule
// never prevents the rest of the batch from firing.
func (e *Executor) Tick(ctx context.Context, now time.Time) TickStats {
	var stats TickStats

	due, err := e.store.DueSchedules(ctx, now, e.config.BatchSize)
	if err != nil {
		e.logger.Error("due schedules query failed", "error", err)
		return stats
	}

	for i := range due {
		sched := due[i]
		switch outcome := e.fireSchedule(ctx, &sched, now); outcome {
		case fired:
			stats.Processed++
			e.processedCtr.Add(ctx, 1)
		case lostClaim:
			stats.Skipped++
			e.skippedCtr.Add(ctx, 1)
		case errored:
			stats.Failed++
			e.failedCtr.Add(ctx, 1)
		}
	}

	return stats
}

type fireOutcome int

const (
	fired fireOutcome = iota
	lostClaim
	errored
)

// fireSchedule advances the schedule's next run and, only once that advance
// is durably persisted, creates the call job and hands it to the dispatcher.
// A crash between the advance and the dispatch skips this slot instead of
// risking a duplicate call on restart.
func (e *Executor) fireSchedule(ctx context.Context, sched *store.Schedule, now time.Time) fireOutcome {
	if sched.NextRunAt == nil {
		e.logger.Warn("due schedule has no next run", "schedule_id", sched.ID)
		return errored
	}
	slot := *sched.NextRunAt

	next, err := cadence.NextRunUTC(sched.MinuteOfDay, sched.Weekdays, sched.Timezone, now)
	if err != nil {
		e.logger.Error("next run computation failed", "schedule_id", sched.ID, "error", err)
		return errored
	}

	claimed, err := e.store.AdvanceSchedule(ctx, sched.ID, slot, next)
	if err != nil {
		e.logger.Error("schedule advance failed", "schedule_id", sched.ID, "error", err)
		return errored
	}
	if !claimed {
		// Another tick (or instance) won this slot.
		return lostClaim
	}

	job := &store.CallJob{
		ID:           uuid.New(),
		ScheduleID:   sched.ID,
		UserID:       sched.UserID,
		ScheduledFor: slot,
		Status:       store.CallJobStatusQueued,
		CreatedAt:    now,
	}
	if err := e.store.CreateCallJob(ctx, nil, job); err != nil {
		e.logger.Error("call job creation failed", "schedule_id", sched.ID, "error", err)
		return errored
	}

	displayName := e.lookupDisplayName(ctx, sched.UserID)

	// Dispatch off the tick path. The dispatcher records provider failures
	// on the job itself; a panic here must not take down the loop.
	e.wg.Add(1)
	e.sem <- struct{}{}
	schedCopy := *sched
	go func() {
		defer e.wg.Done()
		defer func() { <-e.sem }()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("dispatch panicked", "job_id", job.ID, "panic", fmt.Sprint(r))
			}
		}()
		// Detached from the tick context so a shutdown drains cleanly.
		dispatchCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = e.dispatcher.Dispatch(dispatchCtx, job, &schedCopy, displayName)
	}()

	return fired
}

func (e *Executor) lookupDisplayName(ctx context.Context, userID uuid.UUID) string {
	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		e.logger.Warn("user lookup failed, greeting without name", "user_id", userID, "error", err)
		return ""
	}
	return user.DisplayName
}
