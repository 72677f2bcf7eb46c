package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iconidentify/chalkboard/pkg/whisper"
)

// Whisper serves transcription through the OpenAI audio API.
type Whisper struct {
	client whisper.Client
	model  string
}

// NewWhisper wraps a Whisper client. An empty model uses the client default.
func NewWhisper(client whisper.Client, model string) *Whisper {
	return &Whisper{client: client, model: model}
}

// Name implements AudioModel.
func (w *Whisper) Name() string { return "whisper" }

// Transcribe implements AudioModel.
func (w *Whisper) Transcribe(ctx context.Context, req AudioRequest) (string, error) {
	filename := req.Filename
	if filename == "" {
		filename = "segment.wav"
	}

	resp, err := w.client.Transcribe(ctx, whisper.Clip{
		Audio:    req.Audio,
		Filename: filename,
		Model:    w.model,
		Language: "en",
		Prompt:   req.Prompt,
	})
	if err != nil {
		var apiErr *whisper.APIError
		if errors.As(err, &apiErr) {
			err = &StatusError{
				Provider:   w.Name(),
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Body,
				RetryAfter: apiErr.RetryAfter,
			}
		} else {
			err = fmt.Errorf("whisper: %w", err)
		}
		observe(w.Name(), opAudio, err)
		return "", err
	}

	observe(w.Name(), opAudio, nil)
	return strings.TrimSpace(resp.Text), nil
}
