// Package llm adapts hosted model providers to the small capability
// interfaces the commentary pipeline needs.
package llm

import (
	"context"
	"strings"

	"github.com/iconidentify/chalkboard/internal/metrics"
)

// Metric operation labels.
const (
	opText   = "text"
	opVision = "vision"
	opAudio  = "audio"
)

// TextRequest is a single-turn text generation request.
type TextRequest struct {
	System      string
	Prompt      string
	Temperature float64 // 0 uses the provider default
	MaxTokens   int     // 0 uses the provider default
}

// VisionRequest asks a model about one or more JPEG images.
type VisionRequest struct {
	Prompt      string
	Images      [][]byte
	Temperature float64
	MaxTokens   int
}

// AudioRequest asks a model to transcribe an audio clip.
type AudioRequest struct {
	Prompt   string
	Audio    []byte
	MIMEType string // defaults to audio/wav
	Filename string // used by multipart uploads
}

// TextModel generates text.
type TextModel interface {
	Name() string
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// VisionModel describes images.
type VisionModel interface {
	Name() string
	Describe(ctx context.Context, req VisionRequest) (string, error)
}

// AudioModel transcribes speech.
type AudioModel interface {
	Name() string
	Transcribe(ctx context.Context, req AudioRequest) (string, error)
}

// Model is a provider that can both generate text and describe images.
type Model interface {
	TextModel
	VisionModel
}

func observe(provider, op string, err error) {
	status := metrics.ProviderSuccess
	switch {
	case err == nil:
	case IsRateLimited(err):
		status = metrics.ProviderRateLimited
	default:
		status = metrics.ProviderError
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, op, status).Inc()
}

// cleanOutput strips whitespace and a surrounding markdown fence.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
