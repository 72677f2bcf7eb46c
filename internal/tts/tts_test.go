package tts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iconidentify/chalkboard/pkg/elevenlabs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	audio []byte
	err   error
	calls int
}

func (f *fakeBackend) Synthesize(context.Context, string) ([]byte, error) {
	f.calls++
	return f.audio, f.err
}

func TestSynthesize_BlankText(t *testing.T) {
	backend := &fakeBackend{audio: []byte("mp3")}
	s := NewService(backend, testLogger())

	if got := s.Synthesize(context.Background(), "   "); got != nil {
		t.Errorf("Synthesize(blank) = %q, want nil", got)
	}
	if backend.calls != 0 {
		t.Error("backend should not be called for blank text")
	}
}

func TestSynthesize_NotConfigured(t *testing.T) {
	s := NewService(nil, testLogger())

	if s.Available() {
		t.Error("Available() should be false without a backend")
	}
	if got := s.Synthesize(context.Background(), "hello"); got != nil {
		t.Errorf("Synthesize = %q, want nil", got)
	}
}

func TestSynthesize_BackendError(t *testing.T) {
	s := NewService(&fakeBackend{err: errors.New("boom")}, testLogger())

	if got := s.Synthesize(context.Background(), "hello"); got != nil {
		t.Errorf("Synthesize = %q, want nil on failure", got)
	}
}

func TestSynthesize_ElevenLabs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3audio"))
	}))
	defer server.Close()

	backend := elevenlabs.NewClient(elevenlabs.Config{APIKey: "k", BaseURL: server.URL})
	s := NewService(backend, testLogger())

	if !s.Available() {
		t.Fatal("Available() should be true")
	}
	if got := s.Synthesize(context.Background(), "Touchdown!"); string(got) != "ID3audio" {
		t.Errorf("Synthesize = %q, want %q", got, "ID3audio")
	}
}

func TestSynthesize_ElevenLabsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	backend := elevenlabs.NewClient(elevenlabs.Config{APIKey: "k", BaseURL: server.URL})
	s := NewService(backend, testLogger())

	if got := s.Synthesize(context.Background(), "Touchdown!"); got != nil {
		t.Errorf("Synthesize = %q, want nil", got)
	}
}
