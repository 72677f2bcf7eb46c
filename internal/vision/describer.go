// Package vision describes soccer frames with a hosted vision model.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/llm"
)

// MaxFrames is the number of frames sent per window; older frames are dropped.
const MaxFrames = 4

const minDescriptionLength = 5

const framePrompt = "Analyze this soccer frame. Describe the key action happening: player positions, ball location, and what's occurring. Be concise, under 20 words."

// Describer turns frames into a short play description.
type Describer struct {
	model    llm.VisionModel
	enricher *Enricher
	logger   *slog.Logger
}

// NewDescriber creates a describer. model may be nil (no vision configured);
// enricher may be nil (no detection server).
func NewDescriber(model llm.VisionModel, enricher *Enricher, logger *slog.Logger) *Describer {
	return &Describer{
		model:    model,
		enricher: enricher,
		logger:   logger.With("component", "vision"),
	}
}

// Available reports whether a vision model is configured.
func (d *Describer) Available() bool {
	return d != nil && d.model != nil
}

// Describe summarises a short window of frames (oldest first). Only the
// newest MaxFrames frames are sent. A window holding a single frame is
// described with the single-frame prompt.
func (d *Describer) Describe(ctx context.Context, frames []domain.Frame) (string, error) {
	if d.model == nil {
		return "", domain.ErrProviderUnavailable
	}
	switch len(frames) {
	case 0:
		return "", domain.ErrNoFrames
	case 1:
		return d.DescribeFrame(ctx, frames[0], "")
	}
	if len(frames) > MaxFrames {
		frames = frames[len(frames)-MaxFrames:]
	}

	prompt := WindowPrompt(frames)
	if d.enricher != nil {
		block := d.enricher.Context(ctx, frames[len(frames)-1].JPEG, "")
		prompt = block + "\n\n" + prompt
	}

	images := make([][]byte, len(frames))
	for i, f := range frames {
		images[i] = f.JPEG
	}

	out, err := d.model.Describe(ctx, llm.VisionRequest{Prompt: prompt, Images: images})
	if err != nil {
		return "", err
	}
	return d.check(out, len(frames))
}

// DescribeFrame describes a single frame, optionally grounded on caller
// supplied context.
func (d *Describer) DescribeFrame(ctx context.Context, frame domain.Frame, videoContext string) (string, error) {
	if d.model == nil {
		return "", domain.ErrProviderUnavailable
	}

	grounding := videoContext
	if d.enricher != nil {
		grounding = d.enricher.Context(ctx, frame.JPEG, videoContext)
	}

	out, err := d.model.Describe(ctx, llm.VisionRequest{
		Prompt:      FramePrompt(grounding),
		Images:      [][]byte{frame.JPEG},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	return d.check(out, 1)
}

func (d *Describer) check(out string, frames int) (string, error) {
	out = strings.TrimSpace(out)
	if len(out) < minDescriptionLength {
		return "", domain.ErrEmptyDescription
	}
	d.logger.Debug("described frames", "frames", frames, "chars", len(out))
	return out, nil
}

// WindowPrompt builds the multi-frame prompt.
func WindowPrompt(frames []domain.Frame) string {
	stamps := make([]string, len(frames))
	for i, f := range frames {
		stamps[i] = fmt.Sprintf("%.1fs", f.Timestamp)
	}

	return "You are analyzing a soccer broadcast using a short sequence of frames.\n" +
		"Frame timestamps: " + strings.Join(stamps, ", ") + "\n\n" +
		"Describe what's happening in the play.\n" +
		"Mention ball location and main action (press, pass, shot, save, tackle, cross, set piece).\n" +
		"Do not invent player names.\n\n" +
		"Return 1–2 sentences, max 35 words."
}

// FramePrompt builds the single-frame prompt.
func FramePrompt(grounding string) string {
	if grounding == "" {
		return framePrompt
	}
	return "CONTEXT: " + grounding + "\n\n" + framePrompt
}
