package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// Analyzer produces commentary plus NFL analogy for a moment in a video.
type Analyzer interface {
	Analyze(ctx context.Context, videoID string, timestamp float64) (domain.Analysis, bool, error)
}

// AnalogyGenerator rewrites soccer commentary as NFL language. Both methods
// fall back to canned text and never fail.
type AnalogyGenerator interface {
	Generate(ctx context.Context, commentary string) string
	NFL(ctx context.Context, commentary string) (string, string)
}

// AnalyzeHandler handles analysis and analogy endpoints.
type AnalyzeHandler struct {
	analyzer Analyzer
	analogy  AnalogyGenerator
	logger   *slog.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(analyzer Analyzer, analogy AnalogyGenerator, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		analogy:  analogy,
		logger:   logger,
	}
}

// AnalyzeRequest is the JSON request body for POST /analyze.
type AnalyzeRequest struct {
	VideoID   string   `json:"videoId"`
	Timestamp *float64 `json:"timestamp"`
}

// AnalyzeResponse is the JSON response for POST /analyze.
type AnalyzeResponse struct {
	OriginalCommentary string  `json:"originalCommentary"`
	NFLAnalogy         string  `json:"nflAnalogy"`
	Timestamp          float64 `json:"timestamp"`
	Cached             bool    `json:"cached"`
}

// Analyze handles POST /analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		writeError(w, h.logger, missing("videoId"))
		return
	}
	if req.Timestamp == nil {
		writeError(w, h.logger, missing("timestamp"))
		return
	}

	analysis, cached, err := h.analyzer.Analyze(r.Context(), req.VideoID, *req.Timestamp)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		OriginalCommentary: analysis.OriginalCommentary,
		NFLAnalogy:         analysis.NFLAnalogy,
		Timestamp:          analysis.Timestamp,
		Cached:             cached,
	})
}

// AnalogyRequest is the JSON request body for POST /generate-analogy-from-text.
type AnalogyRequest struct {
	Commentary string `json:"commentary"`
}

// AnalogyResponse is the JSON response for POST /generate-analogy-from-text.
type AnalogyResponse struct {
	NFLAnalogy string `json:"nflAnalogy"`
}

// GenerateAnalogy handles POST /generate-analogy-from-text.
func (h *AnalyzeHandler) GenerateAnalogy(w http.ResponseWriter, r *http.Request) {
	var req AnalogyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Commentary) == "" {
		writeError(w, h.logger, missing("commentary"))
		return
	}

	writeJSON(w, http.StatusOK, AnalogyResponse{
		NFLAnalogy: h.analogy.Generate(r.Context(), req.Commentary),
	})
}

// NFLAnalogyRequest is the JSON request body for POST /nfl-analogy.
type NFLAnalogyRequest struct {
	SoccerCommentary string `json:"soccer_commentary"`
}

// NFLAnalogyResponse is the JSON response for POST /nfl-analogy.
type NFLAnalogyResponse struct {
	NFLAnalogy    string `json:"nfl_analogy"`
	NFLCommentary string `json:"nfl_commentary"`
}

// NFLAnalogy handles POST /nfl-analogy. Blank commentary yields empty strings.
func (h *AnalyzeHandler) NFLAnalogy(w http.ResponseWriter, r *http.Request) {
	var req NFLAnalogyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	analogy, broadcast := h.analogy.NFL(r.Context(), req.SoccerCommentary)
	writeJSON(w, http.StatusOK, NFLAnalogyResponse{
		NFLAnalogy:    analogy,
		NFLCommentary: broadcast,
	})
}
