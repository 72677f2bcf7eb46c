// Package api wires the HTTP routes and middleware.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iconidentify/chalkboard/internal/api/handler"
	mw "github.com/iconidentify/chalkboard/internal/api/middleware"
)

// DefaultRequestTimeout bounds a request when RouterConfig.RequestTimeout is unset.
const DefaultRequestTimeout = 2 * time.Minute

// Handlers groups the endpoint handlers.
type Handlers struct {
	Health  *handler.HealthHandler
	Analyze *handler.AnalyzeHandler
	Video   *handler.VideoHandler
	Chat    *handler.ChatHandler
	Live    *handler.LiveHandler
	TTS     *handler.TTSHandler
}

// RouterConfig holds router-level settings.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, cfg RouterConfig, logger *slog.Logger) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// CORS for the web client
	r.Use(mw.CORS(cfg.CORSOrigins))

	r.Get("/", h.Health.Root)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/analyze", h.Analyze.Analyze)
	r.Post("/api/analyze", h.Analyze.Analyze)
	r.Post("/generate-analogy-from-text", h.Analyze.GenerateAnalogy)
	r.Post("/nfl-analogy", h.Analyze.NFLAnalogy)

	r.Get("/captions/{videoId}", h.Video.Captions)
	r.Get("/video-metadata/{videoId}", h.Video.Metadata)

	r.Post("/chat", h.Chat.Chat)

	r.Post("/live-commentary", h.Live.Generate)
	r.Delete("/live-commentary/history", h.Live.ClearHistory)

	r.Post("/tts", h.TTS.Synthesize)

	return r
}
