package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// audioWindow is how far either side of the timestamp the audio fallback listens.
const audioWindow = 5.0

// Caption sources reported by GET /captions/{videoId}.
const (
	SourceCaptions = "captions"
	SourceAudio    = "audio"
	SourceNone     = "none"
)

// CaptionReader reads caption tracks for a video.
type CaptionReader interface {
	Fetch(ctx context.Context, ref string) []domain.CaptionRecord
	AtTimestamp(ctx context.Context, ref string, t float64) (string, bool)
}

// Transcriber turns a slice of a video's audio into text.
type Transcriber interface {
	Available() bool
	Transcribe(ctx context.Context, ref string, start, end float64) (string, error)
}

// MetadataGetter looks up video metadata.
type MetadataGetter interface {
	Get(ctx context.Context, ref string) (*domain.VideoMetadata, error)
}

// VideoHandler handles caption and metadata endpoints.
type VideoHandler struct {
	captions CaptionReader
	audio    Transcriber
	metadata MetadataGetter
	logger   *slog.Logger
}

// NewVideoHandler creates a new video handler. audio may be nil.
func NewVideoHandler(captions CaptionReader, audio Transcriber, metadata MetadataGetter, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{
		captions: captions,
		audio:    audio,
		metadata: metadata,
		logger:   logger,
	}
}

// CaptionResponse is returned when a timestamp is given.
type CaptionResponse struct {
	Text      string  `json:"text"`
	VideoID   string  `json:"videoId"`
	Timestamp float64 `json:"timestamp"`
	Source    string  `json:"source"`
}

// CaptionTrackResponse is returned when no timestamp is given.
type CaptionTrackResponse struct {
	Captions []domain.CaptionRecord `json:"captions"`
	VideoID  string                 `json:"videoId"`
}

// Captions handles GET /captions/{videoId}.
func (h *VideoHandler) Captions(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(chi.URLParam(r, "videoId"))
	if videoID == "" {
		writeError(w, h.logger, missing("videoId"))
		return
	}

	q := r.URL.Query()
	raw := q.Get("timestamp")
	if raw == "" {
		records := h.captions.Fetch(r.Context(), videoID)
		if records == nil {
			records = []domain.CaptionRecord{}
		}
		writeJSON(w, http.StatusOK, CaptionTrackResponse{Captions: records, VideoID: videoID})
		return
	}

	ts, err := strconv.ParseFloat(raw, 64)
	if err != nil || ts < 0 {
		writeError(w, h.logger, fmt.Errorf("%w: timestamp must be a non-negative number", domain.ErrInvalidRequest))
		return
	}

	resp := CaptionResponse{VideoID: videoID, Timestamp: ts, Source: SourceNone}
	if text, ok := h.captions.AtTimestamp(r.Context(), videoID, ts); ok {
		resp.Text = text
		resp.Source = SourceCaptions
	} else if audioFallback(q.Get("audio_fallback")) && h.audio != nil && h.audio.Available() {
		text, err := h.audio.Transcribe(r.Context(), videoID, ts-audioWindow, ts+audioWindow)
		if err != nil {
			h.logger.Warn("audio fallback failed", "video_id", videoID, "timestamp", ts, "error", err)
		} else {
			resp.Text = text
			resp.Source = SourceAudio
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func audioFallback(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Metadata handles GET /video-metadata/{videoId}.
func (h *VideoHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(chi.URLParam(r, "videoId"))
	if videoID == "" {
		writeError(w, h.logger, missing("videoId"))
		return
	}

	meta, err := h.metadata.Get(r.Context(), videoID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}
