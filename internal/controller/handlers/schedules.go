package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"daybell/internal/cadence"
	"daybell/internal/controller/middleware"
	"daybell/internal/store"
	"daybell/pkg/api"
)

// E.164: plus sign, then 7-15 digits.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// UpsertSchedule handles PUT /v1/schedule.
// Validation happens here, synchronously: a bad timezone, cadence, time of
// day or phone number is rejected and never persisted.
func (h *Handlers) UpsertSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.UpsertScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !phonePattern.MatchString(req.PhoneNumber) {
		h.httpError(w, "Phone number must be E.164, e.g. +14155550101", http.StatusBadRequest)
		return
	}

	minute, err := cadence.MinuteOfDay(req.TimeOfDay)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind := cadence.Kind(req.Cadence)
	if !cadence.ValidKind(kind) {
		h.httpError(w, "Cadence must be one of daily, weekdays, weekends, custom", http.StatusBadRequest)
		return
	}
	customDays := make([]time.Weekday, len(req.CustomDays))
	for i, d := range req.CustomDays {
		customDays[i] = time.Weekday(d)
	}
	mask, err := cadence.MaskFor(kind, customDays)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Timezone validity does not depend on the active flag; a row with an
	// unloadable zone must never be persisted.
	if err := cadence.ValidateTimezone(req.Timezone); err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	schedule := &store.Schedule{
		ID:          uuid.New(),
		UserID:      userID,
		PhoneNumber: req.PhoneNumber,
		Timezone:    req.Timezone,
		MinuteOfDay: minute,
		Cadence:     kind,
		Weekdays:    mask,
		Active:      req.Active,
		CreatedAt:   now,
	}

	if req.Active {
		next, err := cadence.NextRunUTC(minute, mask, req.Timezone, now)
		if err != nil {
			h.httpError(w, err.Error(), http.StatusBadRequest)
			return
		}
		schedule.NextRunAt = &next
	}

	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	if err := h.store.EnsureUser(ctx, tx, &store.User{
		ID:          userID,
		DisplayName: req.DisplayName,
		CreatedAt:   now,
	}); err != nil {
		h.httpError(w, "Failed to save user", http.StatusInternalServerError)
		return
	}

	if err := h.store.UpsertSchedule(ctx, tx, schedule); err != nil {
		h.httpError(w, "Failed to save schedule", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		h.httpError(w, "Failed to commit transaction", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, scheduleResponse(schedule))
}

// GetSchedule handles GET /v1/schedule.
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	schedule, err := h.store.GetScheduleByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "No schedule configured", http.StatusNotFound)
			return
		}
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, scheduleResponse(schedule))
}

// DeactivateSchedule handles DELETE /v1/schedule.
// The schedule row stays; only the active flag clears. An in-flight call
// already dispatched runs to its natural end.
func (h *Handlers) DeactivateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.store.DeactivateSchedule(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "No schedule configured", http.StatusNotFound)
			return
		}
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func scheduleResponse(s *store.Schedule) api.ScheduleResponse {
	days := make([]string, 0, 7)
	for _, d := range s.Weekdays.Days() {
		days = append(days, d.String())
	}
	return api.ScheduleResponse{
		ID:          s.ID.String(),
		PhoneNumber: s.PhoneNumber,
		Timezone:    s.Timezone,
		TimeOfDay:   cadence.FormatMinute(s.MinuteOfDay),
		Cadence:     string(s.Cadence),
		Weekdays:    days,
		Active:      s.Active,
		NextRunAt:   s.NextRunAt,
	}
}
