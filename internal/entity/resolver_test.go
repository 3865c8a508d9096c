package entity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"daybell/internal/store"
)

type fakeEntityStore struct {
	entities map[string]*store.CanonicalEntity
	creates  int
}

func newFakeEntityStore() *fakeEntityStore {
	return &fakeEntityStore{entities: make(map[string]*store.CanonicalEntity)}
}

func key(kind store.EntityKind, k string) string {
	return string(kind) + "/" + k
}

func (f *fakeEntityStore) GetEntity(ctx context.Context, userID uuid.UUID, kind store.EntityKind, k string) (*store.CanonicalEntity, error) {
	e, ok := f.entities[key(kind, k)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEntityStore) CreateEntity(ctx context.Context, e *store.CanonicalEntity) error {
	f.creates++
	cp := *e
	f.entities[key(e.Kind, e.Key)] = &cp
	return nil
}

func (f *fakeEntityStore) AddEntityUse(ctx context.Context, id uuid.UUID, at time.Time) error {
	for _, e := range f.entities {
		if e.ID == id {
			e.UseCount++
			e.LastUsedAt = at
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeEntityStore) ReleaseEntityUse(ctx context.Context, id uuid.UUID) error {
	for _, e := range f.entities {
		if e.ID == id {
			if e.UseCount > 0 {
				e.UseCount--
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeEntityStore) TouchEntity(ctx context.Context, id uuid.UUID, at time.Time) error {
	for _, e := range f.entities {
		if e.ID == id {
			e.LastUsedAt = at
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeEntityStore) ListEntityDisplays(ctx context.Context, userID uuid.UUID, kind store.EntityKind, limit int) ([]string, error) {
	var out []string
	for _, e := range f.entities {
		if e.Kind == kind {
			out = append(out, e.Display)
		}
	}
	return out, nil
}

func (f *fakeEntityStore) get(kind store.EntityKind, k string) *store.CanonicalEntity {
	return f.entities[key(kind, k)]
}

func newTestResolver(fs *fakeEntityStore) *Resolver {
	r := New(fs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey(store.EntityKindPerson, "  Ana "); got != "Ana" {
		t.Errorf("person key = %q, want %q", got, "Ana")
	}
	// People keep case: two different spellings are two different people.
	if NormalizeKey(store.EntityKindPerson, "Ana") == NormalizeKey(store.EntityKindPerson, "ana") {
		t.Error("person keys should be case-sensitive")
	}
	if got := NormalizeKey(store.EntityKindTag, " Garden "); got != "garden" {
		t.Errorf("tag key = %q, want %q", got, "garden")
	}
}

func TestResolve_CreatesThenReuses(t *testing.T) {
	fs := newFakeEntityStore()
	r := newTestResolver(fs)
	userID := uuid.New()
	ctx := context.Background()

	ent, created, err := r.Resolve(ctx, userID, store.EntityKindPerson, "Ana")
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if !created {
		t.Error("first Resolve should report created=true")
	}
	if ent.UseCount != 1 || ent.Display != "Ana" {
		t.Errorf("created entity = %+v, want use_count=1 display=Ana", ent)
	}

	_, created, err = r.Resolve(ctx, userID, store.EntityKindPerson, "Ana")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if created {
		t.Error("second Resolve should report created=false")
	}
	if got := fs.get(store.EntityKindPerson, "Ana"); got.UseCount != 2 {
		t.Errorf("use_count = %d after reuse, want 2", got.UseCount)
	}
	if fs.creates != 1 {
		t.Errorf("creates = %d, want 1", fs.creates)
	}
}

func TestResolve_TagCaseInsensitive(t *testing.T) {
	fs := newFakeEntityStore()
	r := newTestResolver(fs)
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := r.Resolve(ctx, userID, store.EntityKindTag, "Garden"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, created, err := r.Resolve(ctx, userID, store.EntityKindTag, "garden"); err != nil || created {
		t.Errorf("case variant created a second tag (created=%v, err=%v)", created, err)
	}
	if got := fs.get(store.EntityKindTag, "garden"); got == nil || got.UseCount != 2 {
		t.Errorf("tag garden = %+v, want use_count=2", got)
	}
	// Display keeps the first-seen form.
	if got := fs.get(store.EntityKindTag, "garden"); got.Display != "Garden" {
		t.Errorf("display = %q, want first-seen %q", got.Display, "Garden")
	}
}

func TestResolve_EmptyNameRejected(t *testing.T) {
	r := newTestResolver(newFakeEntityStore())
	if _, _, err := r.Resolve(context.Background(), uuid.New(), store.EntityKindPerson, "   "); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestResolveAll_DeduplicatesWithinCall(t *testing.T) {
	fs := newFakeEntityStore()
	r := newTestResolver(fs)
	userID := uuid.New()

	err := r.ResolveAll(context.Background(), userID, store.EntityKindTag, []string{"garden", "Garden", "", "cooking"})
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if got := fs.get(store.EntityKindTag, "garden"); got == nil || got.UseCount != 1 {
		t.Errorf("duplicate within one call double-counted: %+v", got)
	}
	if got := fs.get(store.EntityKindTag, "cooking"); got == nil || got.UseCount != 1 {
		t.Errorf("cooking = %+v, want use_count=1", got)
	}
}

func TestReconcile_DiffSemantics(t *testing.T) {
	fs := newFakeEntityStore()
	r := newTestResolver(fs)
	userID := uuid.New()
	ctx := context.Background()

	// Seed A and B at use_count=1 each.
	if err := r.ResolveAll(ctx, userID, store.EntityKindPerson, []string{"A", "B"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Edit: {A, B} -> {B, C}. A loses a use, B only refreshes, C is created.
	if err := r.Reconcile(ctx, userID, store.EntityKindPerson, []string{"A", "B"}, []string{"B", "C"}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := fs.get(store.EntityKindPerson, "A"); got.UseCount != 0 {
		t.Errorf("A use_count = %d, want 0", got.UseCount)
	}
	if got := fs.get(store.EntityKindPerson, "B"); got.UseCount != 1 {
		t.Errorf("B use_count = %d, want 1 (kept entities don't gain uses)", got.UseCount)
	}
	if got := fs.get(store.EntityKindPerson, "C"); got == nil || got.UseCount != 1 {
		t.Errorf("C = %+v, want created at use_count=1", got)
	}
}

func TestReconcile_AddedExistingGainsUse(t *testing.T) {
	fs := newFakeEntityStore()
	r := newTestResolver(fs)
	userID := uuid.New()
	ctx := context.Background()

	// D exists from an earlier entry.
	if err := r.ResolveAll(ctx, userID, store.EntityKindPerson, []string{"D"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// This entry previously had nobody; the edit adds D.
	if err := r.Reconcile(ctx, userID, store.EntityKindPerson, nil, []string{"D"}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if got := fs.get(store.EntityKindPerson, "D"); got.UseCount != 2 {
		t.Errorf("D use_count = %d, want 2", got.UseCount)
	}
}

func TestReconcile_UseCountFloorsAtZero(t *testing.T) {
	fs := newFakeEntityStore()
	r := newTestResolver(fs)
	userID := uuid.New()
	ctx := context.Background()

	if err := r.ResolveAll(ctx, userID, store.EntityKindPerson, []string{"E"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Remove E twice in a row; the count must not go negative and the
	// entity must survive.
	if err := r.Reconcile(ctx, userID, store.EntityKindPerson, []string{"E"}, nil); err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}
	if err := r.Reconcile(ctx, userID, store.EntityKindPerson, []string{"E"}, nil); err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}

	got := fs.get(store.EntityKindPerson, "E")
	if got == nil {
		t.Fatal("entity deleted; it should only floor at zero")
	}
	if got.UseCount != 0 {
		t.Errorf("E use_count = %d, want 0", got.UseCount)
	}
}

func TestReconcile_RemovedMissingEntityTolerated(t *testing.T) {
	fs := newFakeEntityStore()
	r := newTestResolver(fs)

	// Old association points at an entity nobody ever stored.
	err := r.Reconcile(context.Background(), uuid.New(), store.EntityKindPerson, []string{"Ghost"}, nil)
	if err != nil {
		t.Errorf("missing removed entity should be tolerated, got %v", err)
	}
}
