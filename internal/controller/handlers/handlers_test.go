package handlers

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daybell/internal/entity"
	"daybell/internal/pipeline"
	"daybell/internal/store"
	"daybell/internal/webhook"
)

// noopTx satisfies store.Tx without a database.
type noopTx struct{}

func (noopTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (noopTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (noopTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// mockStore implements StoreFactory in memory with injectable failures.
type mockStore struct {
	beginTxErr  error
	upsertErr   error
	ensureErr   error
	listErr     error
	schedules   map[uuid.UUID]*store.Schedule // keyed by user id
	entries     map[uuid.UUID]*store.DiaryEntry
	jobs        map[uuid.UUID]*store.CallJob
	artworks    map[uuid.UUID]*store.Artwork // keyed by entry id
	upserted    *store.Schedule
	deactivated []uuid.UUID
}

func newMockStore() *mockStore {
	return &mockStore{
		schedules: make(map[uuid.UUID]*store.Schedule),
		entries:   make(map[uuid.UUID]*store.DiaryEntry),
		jobs:      make(map[uuid.UUID]*store.CallJob),
		artworks:  make(map[uuid.UUID]*store.Artwork),
	}
}

func (m *mockStore) BeginTx(ctx context.Context) (store.Tx, error) {
	if m.beginTxErr != nil {
		return nil, m.beginTxErr
	}
	return noopTx{}, nil
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }

func (m *mockStore) EnsureUser(ctx context.Context, tx store.DBTransaction, user *store.User) error {
	return m.ensureErr
}

func (m *mockStore) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	return &store.User{ID: id}, nil
}

func (m *mockStore) ReserveImageCredit(ctx context.Context, userID uuid.UUID) error {
	return store.ErrCreditsExhausted
}

func (m *mockStore) ReleaseImageCredit(ctx context.Context, userID uuid.UUID) error { return nil }

func (m *mockStore) UpsertSchedule(ctx context.Context, tx store.DBTransaction, s *store.Schedule) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = s
	m.schedules[s.UserID] = s
	return nil
}

func (m *mockStore) GetScheduleByUser(ctx context.Context, userID uuid.UUID) (*store.Schedule, error) {
	s, ok := m.schedules[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *mockStore) GetScheduleByID(ctx context.Context, id uuid.UUID) (*store.Schedule, error) {
	for _, s := range m.schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) DeactivateSchedule(ctx context.Context, userID uuid.UUID) error {
	if _, ok := m.schedules[userID]; !ok {
		return store.ErrNotFound
	}
	m.deactivated = append(m.deactivated, userID)
	m.schedules[userID].Active = false
	return nil
}

func (m *mockStore) DueSchedules(ctx context.Context, now time.Time, limit int) ([]store.Schedule, error) {
	return nil, nil
}

func (m *mockStore) AdvanceSchedule(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error) {
	return false, nil
}

func (m *mockStore) CreateCallJob(ctx context.Context, tx store.DBTransaction, job *store.CallJob) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockStore) GetCallJobByID(ctx context.Context, id uuid.UUID) (*store.CallJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (m *mockStore) GetCallJobByExternalID(ctx context.Context, externalID string) (*store.CallJob, error) {
	for _, job := range m.jobs {
		if job.ExternalCallID != nil && *job.ExternalCallID == externalID {
			return job, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) TransitionCallJob(ctx context.Context, id uuid.UUID, from []store.CallJobStatus, to store.CallJobStatus) (bool, error) {
	job, ok := m.jobs[id]
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

func (m *mockStore) MarkCallJobDialing(ctx context.Context, id uuid.UUID, externalID string) (bool, error) {
	return false, nil
}

func (m *mockStore) CancelCallJob(ctx context.Context, id uuid.UUID) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || (job.Status != store.CallJobStatusQueued && job.Status != store.CallJobStatusDialing) {
		return false, nil
	}
	job.Status = store.CallJobStatusCanceled
	return true, nil
}

func (m *mockStore) FailCallJob(ctx context.Context, id uuid.UUID, errMsg string) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = store.CallJobStatusFailed
	job.ErrorMessage = &errMsg
	return true, nil
}

func (m *mockStore) RecordCallAttempt(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockStore) CreateCallSession(ctx context.Context, session *store.CallSession) error {
	return nil
}

func (m *mockStore) FinalizeCallSession(ctx context.Context, jobID uuid.UUID, endedAt time.Time, durationSec int, disposition string, meta []byte) error {
	return nil
}

func (m *mockStore) GetCallSessionByJob(ctx context.Context, jobID uuid.UUID) (*store.CallSession, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) CreateDiaryEntry(ctx context.Context, tx store.DBTransaction, e *store.DiaryEntry) error {
	m.entries[e.ID] = e
	return nil
}

func (m *mockStore) GetDiaryEntryByID(ctx context.Context, id uuid.UUID) (*store.DiaryEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockStore) ListDiaryEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]store.DiaryEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []store.DiaryEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateDiaryEntry(ctx context.Context, tx store.DBTransaction, e *store.DiaryEntry) error {
	cur, ok := m.entries[e.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Title = e.Title
	cur.Summary = e.Summary
	cur.People = e.People
	cur.Tags = e.Tags
	cur.Mood = e.Mood
	cur.Energy = e.Energy
	return nil
}

func (m *mockStore) CreateArtwork(ctx context.Context, a *store.Artwork) error {
	m.artworks[a.EntryID] = a
	return nil
}

func (m *mockStore) GetArtworkByEntry(ctx context.Context, entryID uuid.UUID) (*store.Artwork, error) {
	a, ok := m.artworks[entryID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (m *mockStore) GetArtworkByTaskID(ctx context.Context, taskID string) (*store.Artwork, error) {
	for _, a := range m.artworks {
		if a.ProviderTaskID == taskID {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) FinishArtwork(ctx context.Context, taskID, url string) (bool, error) {
	for _, a := range m.artworks {
		if a.ProviderTaskID == taskID && a.Status == store.ArtworkStatusPending {
			a.Status = store.ArtworkStatusReady
			a.URL = &url
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) FailArtwork(ctx context.Context, taskID, reason string) (bool, error) {
	for _, a := range m.artworks {
		if a.ProviderTaskID == taskID && a.Status == store.ArtworkStatusPending {
			a.Status = store.ArtworkStatusFailed
			a.ErrorMessage = &reason
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) GetEntity(ctx context.Context, userID uuid.UUID, kind store.EntityKind, key string) (*store.CanonicalEntity, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) CreateEntity(ctx context.Context, e *store.CanonicalEntity) error { return nil }

func (m *mockStore) AddEntityUse(ctx context.Context, id uuid.UUID, at time.Time) error { return nil }

func (m *mockStore) ReleaseEntityUse(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockStore) TouchEntity(ctx context.Context, id uuid.UUID, at time.Time) error { return nil }

func (m *mockStore) ListEntityDisplays(ctx context.Context, userID uuid.UUID, kind store.EntityKind, limit int) ([]string, error) {
	return nil, nil
}

// newTestHandlers wires handlers over the mock with a real pipeline and
// ingestor so webhook and edit paths run end to end.
func newTestHandlers(m *mockStore) *Handlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(m, nil, nil, entity.New(m, logger), logger)
	ing := webhook.New(m, p, logger)
	return New(m, ing, p, logger)
}
