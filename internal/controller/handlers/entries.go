package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"daybell/internal/controller/middleware"
	"daybell/internal/pipeline"
	"daybell/internal/store"
	"daybell/pkg/api"
)

// ListEntries handles GET /v1/entries.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.store.ListDiaryEntries(ctx, userID, limit, offset)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := api.ListDiaryEntriesResponse{Entries: make([]api.DiaryEntryResponse, 0, len(entries))}
	for i := range entries {
		resp.Entries = append(resp.Entries, entryResponse(&entries[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// UpdateEntry handles PUT /v1/entries/{id}.
// Edits re-run the canonical entity reconcile against the old associations.
func (h *Handlers) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	var req api.UpdateDiaryEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Summary == "" {
		h.httpError(w, "Title and summary are required", http.StatusBadRequest)
		return
	}
	mood, err := pipeline.MoodFromWord(req.Mood)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}
	energy, err := pipeline.EnergyFromWord(req.Energy)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated := &store.DiaryEntry{
		ID:      entryID,
		UserID:  userID,
		Title:   req.Title,
		Summary: req.Summary,
		People:  req.People,
		Tags:    req.Tags,
		Mood:    mood,
		Energy:  energy,
	}

	if err := h.pipeline.EditEntry(ctx, updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Entry not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to update entry", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, entryResponse(updated))
}

// GetEntryArtwork handles GET /v1/entries/{id}/artwork.
// Pending and failed artifacts stay queryable with their state and reason.
func (h *Handlers) GetEntryArtwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	artwork, err := h.store.GetArtworkByEntry(ctx, entryID)
	if err != nil || artwork.UserID != userID {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Internal database error", http.StatusInternalServerError)
			return
		}
		h.httpError(w, "No artwork for this entry", http.StatusNotFound)
		return
	}

	h.respondJson(w, http.StatusOK, api.ArtworkResponse{
		ID:     artwork.ID.String(),
		Status: string(artwork.Status),
		URL:    artwork.URL,
		Error:  artwork.ErrorMessage,
	})
}

// GetCallJob handles GET /v1/calls/{id}.
// Terminal failed jobs remain queryable with their error reason.
func (h *Handlers) GetCallJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid call id", http.StatusBadRequest)
		return
	}

	job, err := h.store.GetCallJobByID(ctx, jobID)
	if err != nil || job.UserID != userID {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Internal database error", http.StatusInternalServerError)
			return
		}
		h.httpError(w, "Call not found", http.StatusNotFound)
		return
	}

	h.respondJson(w, http.StatusOK, callJobResponse(job))
}

// CancelCallJob handles POST /v1/calls/{id}/cancel.
// Only queued and dialing jobs can be canceled; a call that already
// connected runs to its natural end and the request gets a 409.
func (h *Handlers) CancelCallJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid call id", http.StatusBadRequest)
		return
	}

	job, err := h.store.GetCallJobByID(ctx, jobID)
	if err != nil || job.UserID != userID {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Internal database error", http.StatusInternalServerError)
			return
		}
		h.httpError(w, "Call not found", http.StatusNotFound)
		return
	}

	canceled, err := h.store.CancelCallJob(ctx, jobID)
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}
	if !canceled {
		h.httpError(w, "Call can no longer be canceled", http.StatusConflict)
		return
	}

	job.Status = store.CallJobStatusCanceled
	h.respondJson(w, http.StatusOK, callJobResponse(job))
}

func callJobResponse(job *store.CallJob) api.CallJobResponse {
	return api.CallJobResponse{
		ID:             job.ID.String(),
		ScheduledFor:   job.ScheduledFor,
		Status:         string(job.Status),
		ExternalCallID: job.ExternalCallID,
		Attempts:       job.Attempts,
		Error:          job.ErrorMessage,
	}
}

func entryResponse(e *store.DiaryEntry) api.DiaryEntryResponse {
	mood, _ := pipeline.MoodToWord(e.Mood)
	energy, _ := pipeline.EnergyToWord(e.Energy)
	return api.DiaryEntryResponse{
		ID:          e.ID.String(),
		Title:       e.Title,
		Summary:     e.Summary,
		People:      e.People,
		Tags:        e.Tags,
		Mood:        mood,
		Energy:      energy,
		Anniversary: e.Anniversary,
		HappenedAt:  e.HappenedAt,
	}
}
