package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// SpeechSynthesizer turns text into MP3 audio. Synthesize returns nil on failure.
type SpeechSynthesizer interface {
	Available() bool
	Synthesize(ctx context.Context, text string) []byte
}

// TTSHandler handles POST /tts.
type TTSHandler struct {
	tts    SpeechSynthesizer
	logger *slog.Logger
}

// NewTTSHandler creates a new text-to-speech handler.
func NewTTSHandler(tts SpeechSynthesizer, logger *slog.Logger) *TTSHandler {
	return &TTSHandler{
		tts:    tts,
		logger: logger,
	}
}

// TTSRequest is the JSON request body for POST /tts.
type TTSRequest struct {
	Text string `json:"text"`
}

// Synthesize handles POST /tts.
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, h.logger, domain.ErrEmptyText)
		return
	}
	if !h.tts.Available() {
		writeError(w, h.logger, domain.ErrProviderUnavailable)
		return
	}

	audio := h.tts.Synthesize(r.Context(), req.Text)
	if len(audio) == 0 {
		writeError(w, h.logger, domain.ErrSynthesisFailed)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
