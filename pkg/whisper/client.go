// Package whisper is a minimal client for the OpenAI speech-to-text endpoint,
// sized for short broadcast clips held in memory.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "whisper-1"
	DefaultTimeout = 60 * time.Second

	// MaxClipBytes is the upload limit of the transcription endpoint.
	MaxClipBytes = 25 << 20
)

var (
	// ErrEmptyClip is returned when there is no audio to upload.
	ErrEmptyClip = errors.New("audio clip is empty")
	// ErrClipTooLarge is returned for clips over MaxClipBytes.
	ErrClipTooLarge = errors.New("audio clip exceeds upload limit")
)

// APIError is a non-200 answer from the transcription endpoint.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter string // raw Retry-After header, if any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whisper API error (status %d): %s", e.StatusCode, e.Body)
}

// Client transcribes audio clips.
type Client interface {
	Transcribe(ctx context.Context, clip Clip) (*Transcript, error)
}

// Clip is one in-memory audio upload.
type Clip struct {
	Audio    []byte
	Filename string // extension tells the API the container; defaults to clip.wav
	Model    string // overrides the client model
	Language string // ISO-639-1 hint, e.g. "en"
	Prompt   string // vocabulary hint such as team or player names
}

// Transcript is the endpoint's JSON answer.
type Transcript struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Config for creating a new Whisper client.
type Config struct {
	APIKey  string
	BaseURL string        // Optional, defaults to DefaultBaseURL
	Model   string        // Optional, defaults to DefaultModel
	Timeout time.Duration // Optional, defaults to DefaultTimeout
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Whisper client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &HTTPClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Model returns the default transcription model.
func (c *HTTPClient) Model() string {
	return c.model
}

// Transcribe uploads clip and returns its transcript.
func (c *HTTPClient) Transcribe(ctx context.Context, clip Clip) (*Transcript, error) {
	switch {
	case len(clip.Audio) == 0:
		return nil, ErrEmptyClip
	case len(clip.Audio) > MaxClipBytes:
		return nil, fmt.Errorf("%w: %d bytes", ErrClipTooLarge, len(clip.Audio))
	}

	body, contentType, err := c.form(clip)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	var out Transcript
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	out.Text = strings.TrimSpace(out.Text)
	return &out, nil
}

// form builds the multipart body for clip.
func (c *HTTPClient) form(clip Clip) (io.Reader, string, error) {
	filename := clip.Filename
	if filename == "" {
		filename = "clip.wav"
	}
	model := clip.Model
	if model == "" {
		model = c.model
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Audio); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}

	fields := [][2]string{
		{"model", model},
		{"response_format", "json"},
		{"language", clip.Language},
		{"prompt", clip.Prompt},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", f[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
