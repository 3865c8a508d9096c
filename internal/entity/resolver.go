// Package entity deduplicates the people and tags diary entries refer to.
package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"daybell/internal/store"
)

// Resolver maps free-form names to canonical per-user entities.
type Resolver struct {
	store  store.EntityStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a resolver.
func New(s store.EntityStore, logger *slog.Logger) *Resolver {
	return &Resolver{store: s, logger: logger, now: time.Now}
}

// NormalizeKey produces the lookup key for a name. People keep their case
// ("Ana" and "ana" may be different people); tags are case-insensitive.
func NormalizeKey(kind store.EntityKind, name string) string {
	key := strings.TrimSpace(name)
	if kind == store.EntityKindTag {
		key = strings.ToLower(key)
	}
	return key
}

// Resolve finds or creates the canonical entity for a name. Hits bump the
// usage counter and refresh last-used; misses create the entity seeded at
// use_count=1. The second return value reports whether the entity was
// created by this call.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, kind store.EntityKind, name string) (*store.CanonicalEntity, bool, error) {
	key := NormalizeKey(kind, name)
	if key == "" {
		return nil, false, fmt.Errorf("empty %s name", kind)
	}

	ent, err := r.store.GetEntity(ctx, userID, kind, key)
	if err == nil {
		if err := r.store.AddEntityUse(ctx, ent.ID, r.now().UTC()); err != nil {
			return nil, false, err
		}
		return ent, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	now := r.now().UTC()
	ent = &store.CanonicalEntity{
		ID:         uuid.New(),
		UserID:     userID,
		Kind:       kind,
		Key:        key,
		Display:    strings.TrimSpace(name),
		UseCount:   1,
		LastUsedAt: now,
		CreatedAt:  now,
	}
	if err := r.store.CreateEntity(ctx, ent); err != nil {
		return nil, false, err
	}
	return ent, true, nil
}

// ResolveAll resolves a list of names, skipping blanks and duplicates.
func (r *Resolver) ResolveAll(ctx context.Context, userID uuid.UUID, kind store.EntityKind, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := NormalizeKey(kind, name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, _, err := r.Resolve(ctx, userID, kind, name); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile applies an edit's association diff: removed entities lose one
// use (floor zero), added entities gain one (unless this call just created
// them, already seeded at 1), kept entities only refresh last-used.
func (r *Resolver) Reconcile(ctx context.Context, userID uuid.UUID, kind store.EntityKind, oldNames, newNames []string) error {
	oldSet := keySet(kind, oldNames)
	newSet := keySet(kind, newNames)
	now := r.now().UTC()

	for key, name := range oldSet {
		if _, kept := newSet[key]; kept {
			continue
		}
		ent, err := r.store.GetEntity(ctx, userID, kind, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				r.logger.Warn("removed entity missing from store", "kind", kind, "name", name)
				continue
			}
			return err
		}
		if err := r.store.ReleaseEntityUse(ctx, ent.ID); err != nil {
			return err
		}
	}

	for key, name := range newSet {
		_, kept := oldSet[key]

		ent, err := r.store.GetEntity(ctx, userID, kind, key)
		if errors.Is(err, store.ErrNotFound) {
			// Fresh entity: creation seeds use_count=1, no extra increment.
			if _, _, err := r.Resolve(ctx, userID, kind, name); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		if kept {
			if err := r.store.TouchEntity(ctx, ent.ID, now); err != nil {
				return err
			}
			continue
		}
		if err := r.store.AddEntityUse(ctx, ent.ID, now); err != nil {
			return err
		}
	}

	return nil
}

func keySet(kind store.EntityKind, names []string) map[string]string {
	set := make(map[string]string, len(names))
	for _, name := range names {
		if key := NormalizeKey(kind, name); key != "" {
			set[key] = name
		}
	}
	return set
}
