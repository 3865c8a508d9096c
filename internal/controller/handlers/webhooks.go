package handlers

import (
	"encoding/json"
	"net/http"

	"daybell/internal/logger"
	"daybell/internal/pipeline"
	"daybell/internal/voice"
)

// VoiceWebhook handles POST /webhooks/voice.
// Provider anomalies (unknown ids, duplicates, reordering) are absorbed by
// the ingestor and acknowledged with 200 so the provider stops retrying;
// only a storage failure earns a 500 and a redelivery.
func (h *Handlers) VoiceWebhook(w http.ResponseWriter, r *http.Request) {
	var ev voice.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.httpError(w, "Invalid event payload", http.StatusBadRequest)
		return
	}
	if ev.ExternalCallID == "" {
		h.httpError(w, "Missing call_id", http.StatusBadRequest)
		return
	}

	if err := h.ingestor.Ingest(r.Context(), ev); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("voice event ingest failed", "call_id", ev.ExternalCallID, "error", err)
		h.httpError(w, "Failed to apply event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ArtworkWebhook handles POST /webhooks/artwork.
func (h *Handlers) ArtworkWebhook(w http.ResponseWriter, r *http.Request) {
	var ev pipeline.ArtworkEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.httpError(w, "Invalid event payload", http.StatusBadRequest)
		return
	}
	if ev.ProviderTaskID == "" {
		h.httpError(w, "Missing task_id", http.StatusBadRequest)
		return
	}

	if err := h.pipeline.HandleArtworkEvent(r.Context(), ev); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("artwork event ingest failed", "task_id", ev.ProviderTaskID, "error", err)
		h.httpError(w, "Failed to apply event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
