package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

var startTime = time.Now()

const (
	serviceName  = "gaffer-agent"
	readyTimeout = 5 * time.Second
)

// Capabilities reports which optional providers are wired.
type Capabilities struct {
	Vision     bool `json:"vision"`
	Text       bool `json:"text"`
	Chat       bool `json:"chat"`
	Audio      bool `json:"audio"`
	TTS        bool `json:"tts"`
	Captions   bool `json:"captions"`
	Frames     bool `json:"frames"`
	Enrichment bool `json:"enrichment"`
}

// ServiceInfo is fixed at startup and reported by the health endpoints.
type ServiceInfo struct {
	Version      string
	HasAPIKey    bool
	Capabilities Capabilities
	CacheBackend string
}

// Pinger checks that a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	info   ServiceInfo
	cache  Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(info ServiceInfo, cache Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		info:   info,
		cache:  cache,
		logger: logger,
	}
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status        string       `json:"status"`
	Service       string       `json:"service"`
	Version       string       `json:"version"`
	HasAPIKey     bool         `json:"has_api_key"`
	Capabilities  Capabilities `json:"capabilities"`
	CacheBackend  string       `json:"cache_backend"`
	UptimeSeconds int64        `json:"uptime_seconds"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Service:       serviceName,
		Version:       h.info.Version,
		HasAPIKey:     h.info.HasAPIKey,
		Capabilities:  h.info.Capabilities,
		CacheBackend:  h.info.CacheBackend,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	})
}

// Ready handles GET /ready - readiness probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("cache backend not ready", "backend", h.info.CacheBackend, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "cache backend not reachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Root handles GET / with service information.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "Gaffer's Chalkboard Agent",
		"version": h.info.Version,
		"endpoints": map[string]string{
			"analyze":         "POST /analyze",
			"captions":        "GET /captions/{videoId}",
			"video_metadata":  "GET /video-metadata/{videoId}",
			"analogy":         "POST /generate-analogy-from-text",
			"nfl_analogy":     "POST /nfl-analogy",
			"chat":            "POST /chat",
			"live_commentary": "POST /live-commentary",
			"live_history":    "DELETE /live-commentary/history",
			"tts":             "POST /tts",
			"health":          "GET /health",
			"ready":           "GET /ready",
			"metrics":         "GET /metrics",
		},
	})
}
