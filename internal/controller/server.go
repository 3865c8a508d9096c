// Package controller contains the HTTP surface for daybell.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"daybell/internal/controller/handlers"
	"daybell/internal/controller/middleware"
	"daybell/internal/pipeline"
	"daybell/internal/webhook"
)

// Server is the HTTP server for the daybell API.
type Server struct {
	httpServer *http.Server
}

// New creates a new API server.
func New(addr string, store handlers.StoreFactory, ing *webhook.Ingestor, p *pipeline.Pipeline, webhookToken string, metricsHandler http.Handler, logger *slog.Logger) *Server {
	h := handlers.New(store, ing, p, logger)

	webhookMW := func(next http.Handler) http.Handler {
		return middleware.RateLimit(50, 100)(middleware.WebhookAuth(webhookToken)(next))
	}

	mux := http.NewServeMux()

	// User-facing, authenticated at the gateway
	mux.Handle("PUT /v1/schedule", middleware.Auth(http.HandlerFunc(h.UpsertSchedule)))
	mux.Handle("GET /v1/schedule", middleware.Auth(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("DELETE /v1/schedule", middleware.Auth(http.HandlerFunc(h.DeactivateSchedule)))
	mux.Handle("GET /v1/entries", middleware.Auth(http.HandlerFunc(h.ListEntries)))
	mux.Handle("PUT /v1/entries/{id}", middleware.Auth(http.HandlerFunc(h.UpdateEntry)))
	mux.Handle("GET /v1/entries/{id}/artwork", middleware.Auth(http.HandlerFunc(h.GetEntryArtwork)))
	mux.Handle("GET /v1/calls/{id}", middleware.Auth(http.HandlerFunc(h.GetCallJob)))
	mux.Handle("POST /v1/calls/{id}/cancel", middleware.Auth(http.HandlerFunc(h.CancelCallJob)))

	// Provider callbacks
	mux.Handle("POST /webhooks/voice", webhookMW(http.HandlerFunc(h.VoiceWebhook)))
	mux.Handle("POST /webhooks/artwork", webhookMW(http.HandlerFunc(h.ArtworkWebhook)))

	mux.HandleFunc("GET /healthz", h.Health)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      middleware.RequestID(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
