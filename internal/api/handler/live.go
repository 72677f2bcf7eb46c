package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// LiveCommentator produces deduplicated commentary for a frame window.
type LiveCommentator interface {
	Generate(ctx context.Context, ref string, ts, window float64) domain.CommentaryResult
	ClearHistory(ref string)
}

// LiveHandler handles live commentary endpoints.
type LiveHandler struct {
	live   LiveCommentator
	logger *slog.Logger
}

// NewLiveHandler creates a new live commentary handler.
func NewLiveHandler(live LiveCommentator, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		live:   live,
		logger: logger,
	}
}

// LiveRequest is the JSON request body for POST /live-commentary.
type LiveRequest struct {
	VideoID    string   `json:"videoId"`
	Timestamp  *float64 `json:"timestamp"`
	WindowSize float64  `json:"windowSize,omitempty"`
}

// Generate handles POST /live-commentary. Pipeline failures are reported
// in the body with status 200.
func (h *LiveHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req LiveRequest
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

	writeJSON(w, http.StatusOK, h.live.Generate(r.Context(), req.VideoID, *req.Timestamp, req.WindowSize))
}

// ClearHistory handles DELETE /live-commentary/history. Without a videoId
// every video's history is dropped.
func (h *LiveHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.live.ClearHistory(strings.TrimSpace(r.URL.Query().Get("videoId")))
	w.WriteHeader(http.StatusNoContent)
}
