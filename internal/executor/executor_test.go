package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"daybell/internal/cadence"
	"daybell/internal/dispatch"
	"daybell/internal/store"
	"daybell/internal/voice"
)

// fakeStore backs a tick with in-memory schedules and jobs, logging each
// mutation in order so tests can assert on sequencing.
type fakeStore struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*store.Schedule
	jobs      map[uuid.UUID]*store.CallJob
	users     map[uuid.UUID]*store.User
	events    []string

	denyClaim  bool
	advanceErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules: make(map[uuid.UUID]*store.Schedule),
		jobs:      make(map[uuid.UUID]*store.CallJob),
		users:     make(map[uuid.UUID]*store.User),
	}
}

func (f *fakeStore) log(event string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeStore) addSchedule(tz string, nextRun time.Time) *store.Schedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID := uuid.New()
	f.users[userID] = &store.User{ID: userID, DisplayName: "Ana"}
	s := &store.Schedule{
		ID:          uuid.New(),
		UserID:      userID,
		PhoneNumber: "+14155550101",
		Timezone:    tz,
		MinuteOfDay: 9 * 60,
		Cadence:     cadence.KindDaily,
		Weekdays:    0x7F,
		Active:      true,
		NextRunAt:   &nextRun,
	}
	f.schedules[s.ID] = s
	return s
}

func (f *fakeStore) UpsertSchedule(ctx context.Context, tx store.DBTransaction, s *store.Schedule) error {
	return nil
}

func (f *fakeStore) GetScheduleByUser(ctx context.Context, userID uuid.UUID) (*store.Schedule, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetScheduleByID(ctx context.Context, id uuid.UUID) (*store.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) DeactivateSchedule(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (f *fakeStore) DueSchedules(ctx context.Context, now time.Time, limit int) ([]store.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []store.Schedule
	for _, s := range f.schedules {
		if s.Active && s.NextRunAt != nil && !s.NextRunAt.After(now) {
			due = append(due, *s)
		}
	}
	return due, nil
}

func (f *fakeStore) AdvanceSchedule(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advanceErr != nil {
		return false, f.advanceErr
	}
	if f.denyClaim {
		return false, nil
	}
	s, ok := f.schedules[id]
	if !ok || s.NextRunAt == nil || !s.NextRunAt.Equal(from) {
		return false, nil
	}
	s.NextRunAt = &to
	f.events = append(f.events, "advance")
	return true, nil
}

func (f *fakeStore) CreateCallJob(ctx context.Context, tx store.DBTransaction, job *store.CallJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	f.events = append(f.events, "create_job")
	return nil
}

func (f *fakeStore) GetCallJobByID(ctx context.Context, id uuid.UUID) (*store.CallJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeStore) GetCallJobByExternalID(ctx context.Context, externalID string) (*store.CallJob, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) TransitionCallJob(ctx context.Context, id uuid.UUID, from []store.CallJobStatus, to store.CallJobStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if job.Status == s {
			job.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) MarkCallJobDialing(ctx context.Context, id uuid.UUID, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != store.CallJobStatusQueued {
		return false, nil
	}
	job.Status = store.CallJobStatusDialing
	job.ExternalCallID = &externalID
	f.events = append(f.events, "dialing")
	return true, nil
}

func (f *fakeStore) CancelCallJob(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || (job.Status != store.CallJobStatusQueued && job.Status != store.CallJobStatusDialing) {
		return false, nil
	}
	job.Status = store.CallJobStatusCanceled
	return true, nil
}

func (f *fakeStore) FailCallJob(ctx context.Context, id uuid.UUID, errMsg string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = store.CallJobStatusFailed
	job.ErrorMessage = &errMsg
	f.events = append(f.events, "fail_job")
	return true, nil
}

func (f *fakeStore) RecordCallAttempt(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.Attempts++
	}
	return nil
}

func (f *fakeStore) EnsureUser(ctx context.Context, tx store.DBTransaction, u *store.User) error {
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) ReserveImageCredit(ctx context.Context, userID uuid.UUID) error { return nil }
func (f *fakeStore) ReleaseImageCredit(ctx context.Context, userID uuid.UUID) error { return nil }

// fakeProvider accepts every call with sequential ids, or rejects everything.
type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	reject bool
	log    func(string)
}

func (f *fakeProvider) Dispatch(ctx context.Context, phoneNumber string, callCtx voice.CallContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.log != nil {
		f.log("provider_dispatch")
	}
	if f.reject {
		return "", fmt.Errorf("provider rejected the call")
	}
	return fmt.Sprintf("ext-%d", f.calls), nil
}

func newTestExecutor(fs *fakeStore, provider *fakeProvider) *Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := dispatch.New(fs, provider, logger)
	return New(fs, d, Config{Interval: time.Minute, Concurrency: 2}, logger)
}

func TestTick_FiresDueSchedule(t *testing.T) {
	fs := newFakeStore()
	provider := &fakeProvider{log: fs.log}
	exec := newTestExecutor(fs, provider)

	now := time.Date(2026, 5, 20, 13, 0, 30, 0, time.UTC)
	slot := time.Date(2026, 5, 20, 13, 0, 0, 0, time.UTC)
	sched := fs.addSchedule("America/New_York", slot)

	stats := exec.Tick(context.Background(), now)
	exec.wg.Wait()

	if stats.Processed != 1 || stats.Skipped != 0 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 1 processed", stats)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(fs.jobs))
	}
	for _, job := range fs.jobs {
		if !job.ScheduledFor.Equal(slot) {
			t.Errorf("job slot = %v, want %v", job.ScheduledFor, slot)
		}
		if job.Status != store.CallJobStatusDialing {
			t.Errorf("job status = %s, want dialing after provider accept", job.Status)
		}
		if job.Attempts != 1 {
			t.Errorf("attempts = %d, want 1", job.Attempts)
		}
	}

	next := fs.schedules[sched.ID].NextRunAt
	if next == nil || !next.After(now) {
		t.Errorf("schedule not advanced past now: %v", next)
	}
}

func TestTick_AdvancesBeforeDispatch(t *testing.T) {
	fs := newFakeStore()
	provider := &fakeProvider{log: fs.log}
	exec := newTestExecutor(fs, provider)

	slot := time.Date(2026, 5, 20, 13, 0, 0, 0, time.UTC)
	fs.addSchedule("UTC", slot)

	exec.Tick(context.Background(), slot.Add(30*time.Second))
	exec.wg.Wait()

	fs.mu.Lock()
	events := append([]string(nil), fs.events...)
	fs.mu.Unlock()

	idx := make(map[string]int)
	for i, e := range events {
		if _, seen := idx[e]; !seen {
			idx[e] = i
		}
	}
	advanceIdx, ok1 := idx["advance"]
	dispatchIdx, ok2 := idx["provider_dispatch"]
	if !ok1 || !ok2 {
		t.Fatalf("missing events, got %v", events)
	}
	if advanceIdx > dispatchIdx {
		t.Errorf("dispatch happened before the schedule advance: %v", events)
	}
	if createIdx := idx["create_job"]; createIdx < advanceIdx {
		t.Errorf("job created before the slot was claimed: %v", events)
	}
}

func TestTick_LostClaimSkipsWithoutJob(t *testing.T) {
	fs := newFakeStore()
	fs.denyClaim = true
	provider := &fakeProvider{}
	exec := newTestExecutor(fs, provider)

	slot := time.Date(2026, 5, 20, 13, 0, 0, 0, time.UTC)
	fs.addSchedule("UTC", slot)

	stats := exec.Tick(context.Background(), slot.Add(time.Second))
	exec.wg.Wait()

	if stats.Skipped != 1 || stats.Processed != 0 {
		t.Errorf("stats = %+v, want 1 skipped", stats)
	}
	if len(fs.jobs) != 0 {
		t.Errorf("lost claim still created %d jobs", len(fs.jobs))
	}
	if provider.calls != 0 {
		t.Errorf("lost claim still dispatched %d calls", provider.calls)
	}
}

func TestTick_BadTimezoneIsolatedFromBatch(t *testing.T) {
	fs := newFakeStore()
	provider := &fakeProvider{}
	exec := newTestExecutor(fs, provider)

	slot := time.Date(2026, 5, 20, 13, 0, 0, 0, time.UTC)
	bad := fs.addSchedule("UTC", slot)
	fs.mu.Lock()
	fs.schedules[bad.ID].Timezone = "Atlantis/Gone"
	fs.mu.Unlock()
	good := fs.addSchedule("UTC", slot)

	stats := exec.Tick(context.Background(), slot.Add(time.Second))
	exec.wg.Wait()

	if stats.Failed != 1 {
		t.Errorf("stats.Failed = %d, want 1 for the bad timezone", stats.Failed)
	}
	if stats.Processed != 1 {
		t.Errorf("stats.Processed = %d, want 1; one schedule's error starved the batch", stats.Processed)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, job := range fs.jobs {
		if job.ScheduleID == bad.ID {
			t.Error("a job was created for the schedule that cannot compute its next run")
		}
		if job.ScheduleID != good.ID {
			continue
		}
	}
	if next := fs.schedules[good.ID].NextRunAt; next == nil || !next.After(slot) {
		t.Errorf("healthy schedule not advanced: %v", next)
	}
}

func TestTick_ProviderRejectionFailsJobNotTick(t *testing.T) {
	fs := newFakeStore()
	provider := &fakeProvider{reject: true}
	exec := newTestExecutor(fs, provider)

	slot := time.Date(2026, 5, 20, 13, 0, 0, 0, time.UTC)
	fs.addSchedule("UTC", slot)

	stats := exec.Tick(context.Background(), slot.Add(time.Second))
	exec.wg.Wait()

	// The slot was claimed and the job created; the provider failure lives
	// on the job, not in the tick stats.
	if stats.Processed != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 1 processed", stats)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(fs.jobs))
	}
	for _, job := range fs.jobs {
		if job.Status != store.CallJobStatusFailed {
			t.Errorf("job status = %s, want failed", job.Status)
		}
		if job.ErrorMessage == nil {
			t.Error("provider rejection left no error message")
		}
	}
}

func TestTick_NothingDue(t *testing.T) {
	fs := newFakeStore()
	exec := newTestExecutor(fs, &fakeProvider{})

	future := time.Now().UTC().Add(time.Hour)
	fs.addSchedule("UTC", future)

	stats := exec.Tick(context.Background(), time.Now().UTC())
	if stats.Processed+stats.Skipped+stats.Failed != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}

func TestTick_MissingNextRunCountsFailed(t *testing.T) {
	fs := newFakeStore()
	exec := newTestExecutor(fs, &fakeProvider{})

	s := fs.addSchedule("UTC", time.Now().UTC().Add(-time.Minute))
	fs.mu.Lock()
	// Force the inconsistent shape directly; DueSchedules would normally
	// filter it out.
	fs.schedules[s.ID].NextRunAt = nil
	fs.mu.Unlock()

	// Feed the stale copy through fireSchedule the way a racing tick would.
	stale := *s
	stale.NextRunAt = nil
	if outcome := exec.fireSchedule(context.Background(), &stale, time.Now().UTC()); outcome != errored {
		t.Errorf("outcome = %v, want errored", outcome)
	}
}
