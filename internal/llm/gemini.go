package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// DefaultTranscriptionPrompt instructs a general model to transcribe audio
// when the caller supplies no prompt.
const DefaultTranscriptionPrompt = "Transcribe this soccer commentary audio. Keep it natural and include all words spoken. " +
	"Focus on describing the action, goals, saves, and player movements."

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for tests and proxies
}

// Gemini serves text, vision and audio through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini adapter.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// Name implements TextModel.
func (g *Gemini) Name() string { return "gemini" }

// Generate implements TextModel.
func (g *Gemini) Generate(ctx context.Context, req TextRequest) (string, error) {
	parts := textParts(req.Prompt)
	out, err := g.generate(ctx, parts, req.System, req.Temperature, req.MaxTokens)
	observe(g.Name(), opText, err)
	return out, err
}

// Describe implements VisionModel.
func (g *Gemini) Describe(ctx context.Context, req VisionRequest) (string, error) {
	parts := textParts(req.Prompt)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: img, MIMEType: "image/jpeg"}})
	}
	out, err := g.generate(ctx, parts, "", req.Temperature, req.MaxTokens)
	observe(g.Name(), opVision, err)
	return out, err
}

// Transcribe implements AudioModel.
func (g *Gemini) Transcribe(ctx context.Context, req AudioRequest) (string, error) {
	mime := req.MIMEType
	if mime == "" {
		mime = "audio/wav"
	}
	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultTranscriptionPrompt
	}
	parts := append(textParts(prompt), &genai.Part{InlineData: &genai.Blob{Data: req.Audio, MIMEType: mime}})
	out, err := g.generate(ctx, parts, "", 0, 0)
	observe(g.Name(), opAudio, err)
	return out, err
}

// textParts returns a single text part, or none for blank text. The API
// rejects empty parts.
func textParts(text string) []*genai.Part {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []*genai.Part{{Text: text}}
}

func (g *Gemini) generate(ctx context.Context, parts []*genai.Part, system string, temperature float64, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if temperature > 0 {
		t := float32(temperature)
		cfg.Temperature = &t
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", statusFromMessage(g.Name(), err)
	}
	return cleanOutput(resp.Text()), nil
}
