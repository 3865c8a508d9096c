// Package main is the entry point for the daybell server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daybell/internal/config"
	"daybell/internal/controller"
	"daybell/internal/dispatch"
	"daybell/internal/entity"
	"daybell/internal/executor"
	"daybell/internal/genai"
	"daybell/internal/logger"
	"daybell/internal/observability"
	"daybell/internal/pipeline"
	"daybell/internal/store/postgres"
	"daybell/internal/voice"
	"daybell/internal/webhook"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx := context.Background()
	st, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer st.Close()

	if *migrateFlag {
		slogger.Info("running database migrations")
		if err := postgres.Migrate(st.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		slogger.Info("migrations completed")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "daybell-server", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slogger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slogger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	// Wire the domain components.
	voiceProvider := voice.NewHTTPProvider(cfg.VoiceProviderURL, cfg.VoiceProviderKey)
	extractor := genai.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractorKey)
	synthesizer := genai.NewHTTPSynthesizer(cfg.ImageProviderURL, cfg.ImageProviderKey)

	resolver := entity.New(st, slogger)
	pipe := pipeline.New(st, extractor, synthesizer, resolver, slogger)
	ingestor := webhook.New(st, pipe, slogger)
	dispatcher := dispatch.New(st, voiceProvider, slogger)

	exec := executor.New(st, dispatcher, executor.Config{
		Interval:    cfg.TickInterval,
		Concurrency: cfg.DispatchConcurrency,
	}, slogger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := exec.Run(runCtx); err != nil && err != context.Canceled {
			slogger.Error("executor stopped", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, st, ingestor, pipe, cfg.WebhookToken, metricsHandler, slogger)

	go func() {
		slogger.Info("daybell server starting", "addr", addr)
		if err := srv.Run(runCtx); err != nil {
			slogger.Error("server stopped", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	select {
	case <-exec.Done():
	case <-shutdownCtx.Done():
		slogger.Warn("executor drain timed out")
	}
	slogger.Info("server exited properly")
}
