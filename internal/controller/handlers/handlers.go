// Package handlers contains HTTP handlers for the daybell API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"daybell/internal/pipeline"
	"daybell/internal/store"
	"daybell/internal/webhook"
	"daybell/pkg/api"
)

// StoreFactory combines the interfaces needed for the HTTP surface to function.
type StoreFactory interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	Ping(ctx context.Context) error
	store.UserStore
	store.ScheduleStore
	store.CallJobStore
	store.CallSessionStore
	store.DiaryEntryStore
	store.ArtworkStore
	store.EntityStore
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store    StoreFactory
	ingestor *webhook.Ingestor
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// New creates a new Handlers instance with the given dependencies.
func New(s StoreFactory, ing *webhook.Ingestor, p *pipeline.Pipeline, logger *slog.Logger) *Handlers {
	return &Handlers{store: s, ingestor: ing, pipeline: p, logger: logger}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
