// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port
	HTTPPort int

	// Executor tick interval
	TickInterval time.Duration

	// Parallel call dispatches per tick
	DispatchConcurrency int

	// Voice provider API
	VoiceProviderURL string
	VoiceProviderKey string

	// Structured-extraction service
	ExtractorURL string
	ExtractorKey string

	// Image-synthesis service
	ImageProviderURL string
	ImageProviderKey string

	// Shared token provider callbacks must present
	WebhookToken string

	// OTLP trace collector endpoint
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port := 7040 // Default
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		port = p
	}

	tick := time.Minute // Default
	if tickStr := os.Getenv("TICK_INTERVAL"); tickStr != "" {
		t, err := time.ParseDuration(tickStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		tick = t
	}

	concurrency := 4 // Default
	if cStr := os.Getenv("DISPATCH_CONCURRENCY"); cStr != "" {
		c, err := strconv.Atoi(cStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DISPATCH_CONCURRENCY: %w", err)
		}
		concurrency = c
	}

	otelEndpoint := os.Getenv("OTEL_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}

	return &Config{
		DatabaseURL:         dbURL,
		HTTPPort:            port,
		TickInterval:        tick,
		DispatchConcurrency: concurrency,
		VoiceProviderURL:    envDefault("VOICE_PROVIDER_URL", "http://localhost:9021"),
		VoiceProviderKey:    os.Getenv("VOICE_PROVIDER_KEY"),
		ExtractorURL:        envDefault("EXTRACTOR_URL", "http://localhost:9022"),
		ExtractorKey:        os.Getenv("EXTRACTOR_KEY"),
		ImageProviderURL:    envDefault("IMAGE_PROVIDER_URL", "http://localhost:9023"),
		ImageProviderKey:    os.Getenv("IMAGE_PROVIDER_KEY"),
		WebhookToken:        os.Getenv("WEBHOOK_TOKEN"),
		OTELEndpoint:        otelEndpoint,
	}, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
