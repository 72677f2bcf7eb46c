package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iconidentify/chalkboard/internal/analogy"
	"github.com/iconidentify/chalkboard/internal/api/handler"
	"github.com/iconidentify/chalkboard/internal/chat"
	"github.com/iconidentify/chalkboard/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, _ string, ts float64) (domain.Analysis, bool, error) {
	return domain.Analysis{OriginalCommentary: "Build up from the back.", NFLAnalogy: "A methodical drive.", Timestamp: ts}, false, nil
}

type stubVideo struct{}

func (stubVideo) Fetch(context.Context, string) []domain.CaptionRecord { return nil }

func (stubVideo) AtTimestamp(context.Context, string, float64) (string, bool) {
	return "Kick off.", true
}

func (stubVideo) Get(_ context.Context, ref string) (*domain.VideoMetadata, error) {
	return &domain.VideoMetadata{Title: "Unknown", VideoID: ref}, nil
}

type stubLive struct{}

func (stubLive) Generate(_ context.Context, _ string, ts, _ float64) domain.CommentaryResult {
	return domain.Accepted("Corner swung in.", ts)
}

func (stubLive) ClearHistory(string) {}

type stubTTS struct{}

func (stubTTS) Available() bool                           { return false }
func (stubTTS) Synthesize(context.Context, string) []byte { return nil }

func newTestRouter() http.Handler {
	logger := testLogger()
	gen := analogy.NewGenerator(nil, logger)
	return NewRouter(Handlers{
		Health:  handler.NewHealthHandler(handler.ServiceInfo{Version: "test", CacheBackend: "memory"}, nil, logger),
		Analyze: handler.NewAnalyzeHandler(stubAnalyzer{}, gen, logger),
		Video:   handler.NewVideoHandler(stubVideo{}, nil, stubVideo{}, logger),
		Chat:    handler.NewChatHandler(chat.NewService(nil, nil, logger), logger),
		Live:    handler.NewLiveHandler(stubLive{}, logger),
		TTS:     handler.NewTTSHandler(stubTTS{}, logger),
	}, RouterConfig{CORSOrigins: []string{"http://localhost:5173"}}, logger)
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/", "", http.StatusOK, "Gaffer's Chalkboard Agent"},
		{http.MethodGet, "/health", "", http.StatusOK, `"status":"healthy"`},
		{http.MethodGet, "//ready", "", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/metrics", "", http.StatusOK, "go_goroutines"},
		{http.MethodPost, "/analyze", `{"videoId":"abc","timestamp":4}`, http.StatusOK, `"nflAnalogy":"A methodical drive."`},
		{http.MethodPost, "/api/analyze", `{"videoId":"abc","timestamp":4}`, http.StatusOK, `"cached":false`},
		{http.MethodPost, "/generate-analogy-from-text", `{"commentary":"Pressing high"}`, http.StatusOK, "blitz"},
		{http.MethodPost, "/nfl-analogy", `{"soccer_commentary":"Great save by the keeper"}`, http.StatusOK, `"nfl_commentary"`},
		{http.MethodGet, "/captions/abc?timestamp=3", "", http.StatusOK, `"source":"captions"`},
		{http.MethodGet, "/video-metadata/abc", "", http.StatusOK, `"video_id":"abc"`},
		{http.MethodPost, "/chat", `{"videoId":"abc","timestamp":65,"userMessage":"what is going on?"}`, http.StatusOK, "At 1:05,"},
		{http.MethodPost, "/live-commentary", `{"videoId":"abc","timestamp":9}`, http.StatusOK, `"skipped":false`},
		{http.MethodDelete, "/live-commentary/history?videoId=abc", "", http.StatusNoContent, ""},
		{http.MethodPost, "/tts", `{"text":"Goal!"}`, http.StatusServiceUnavailable, `"error"`},
		{http.MethodGet, "/analyze", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && !bytes.Contains(w.Body.Bytes(), []byte(tt.wantBody)) {
				t.Errorf("body %s missing %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRouter_Preflight(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
