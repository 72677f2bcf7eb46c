// Package tts turns commentary text into speech.
package tts

import (
	"context"
	"log/slog"
	"strings"
)

// Synthesizer is the speech backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Service wraps a speech backend. A nil backend means TTS is not configured.
type Service struct {
	backend Synthesizer
	logger  *slog.Logger
}

// NewService creates a TTS service. backend may be nil.
func NewService(backend Synthesizer, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		logger:  logger.With("component", "tts"),
	}
}

// Available reports whether a speech backend is configured.
func (s *Service) Available() bool {
	return s.backend != nil
}

// Synthesize returns MP3 audio for text, or nil when the text is blank,
// no backend is configured, or the backend fails.
func (s *Service) Synthesize(ctx context.Context, text string) []byte {
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("empty text provided")
		return nil
	}
	if s.backend == nil {
		s.logger.Debug("no speech backend configured")
		return nil
	}

	audio, err := s.backend.Synthesize(ctx, text)
	if err != nil {
		s.logger.Warn("speech synthesis failed", "error", err)
		return nil
	}
	if len(audio) == 0 {
		return nil
	}

	s.logger.Info("synthesized speech", "chars", len(text), "bytes", len(audio))
	return audio
}
