// Package audio transcribes short stretches of a video's soundtrack.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/llm"
	"github.com/iconidentify/chalkboard/pkg/ffmpeg"
)

const sampleRate = 16000

// StreamResolver resolves a video reference to an audio-capable media URL.
type StreamResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// SegmentExtractor cuts an audio segment to a WAV file.
type SegmentExtractor interface {
	ExtractAudioSegment(ctx context.Context, input string, cfg ffmpeg.ExtractAudioConfig) error
}

// Transcriber cuts a segment with ffmpeg and sends it to a speech model.
type Transcriber struct {
	resolver  StreamResolver
	extractor SegmentExtractor
	model     llm.AudioModel
	tempDir   string
	logger    *slog.Logger
}

// NewTranscriber creates a transcriber. Segments are written under tempDir
// (os.TempDir when empty) and removed after each call.
func NewTranscriber(resolver StreamResolver, extractor SegmentExtractor, model llm.AudioModel, tempDir string, logger *slog.Logger) *Transcriber {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Transcriber{
		resolver:  resolver,
		extractor: extractor,
		model:     model,
		tempDir:   tempDir,
		logger:    logger.With("component", "audio"),
	}
}

// Available reports whether a speech model is configured.
func (t *Transcriber) Available() bool {
	return t != nil && t.model != nil
}

// Transcribe returns the speech in [start, end] seconds of ref.
func (t *Transcriber) Transcribe(ctx context.Context, ref string, start, end float64) (string, error) {
	if t.model == nil {
		return "", domain.ErrProviderUnavailable
	}
	start = max(0, start)
	if end <= start {
		return "", fmt.Errorf("%w: empty audio range %.1f-%.1f", domain.ErrInvalidRequest, start, end)
	}

	streamURL, err := t.resolver.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}

	path := filepath.Join(t.tempDir, "chalkboard-"+uuid.NewString()+".wav")
	defer ffmpeg.CleanupTempFiles(path)

	err = t.extractor.ExtractAudioSegment(ctx, streamURL, ffmpeg.ExtractAudioConfig{
		OutputPath: path,
		Start:      start,
		Duration:   end - start,
		SampleRate: sampleRate,
		Channels:   1,
	})
	if err != nil {
		return "", fmt.Errorf("cut audio segment: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio segment: %w", err)
	}

	text, err := t.model.Transcribe(ctx, llm.AudioRequest{
		Audio:    data,
		MIMEType: "audio/wav",
		Filename: filepath.Base(path),
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyTranscript
	}
	t.logger.Debug("transcribed segment",
		"ref", ref,
		"start", start,
		"end", end,
		"provider", t.model.Name(),
		"chars", len(text),
	)
	return text, nil
}
