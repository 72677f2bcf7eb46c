package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/iconidentify/chalkboard/pkg/grok"
)

// Grok serves text and vision through the xAI API.
type Grok struct {
	client grok.Client
}

// NewGrok wraps a Grok client.
func NewGrok(client grok.Client) *Grok {
	return &Grok{client: client}
}

// Name implements TextModel.
func (g *Grok) Name() string { return "grok" }

// Generate implements TextModel.
func (g *Grok) Generate(ctx context.Context, req TextRequest) (string, error) {
	out, err := g.complete(ctx, grok.CompletionRequest{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: temperaturePtr(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	observe(g.Name(), opText, err)
	return out, err
}

// Describe implements VisionModel.
func (g *Grok) Describe(ctx context.Context, req VisionRequest) (string, error) {
	out, err := g.complete(ctx, grok.CompletionRequest{
		Prompt:      req.Prompt,
		Images:      req.Images,
		Temperature: temperaturePtr(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	observe(g.Name(), opVision, err)
	return out, err
}

func (g *Grok) complete(ctx context.Context, req grok.CompletionRequest) (string, error) {
	out, err := g.client.Complete(ctx, req)
	if err != nil {
		var apiErr *grok.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{
				Provider:   g.Name(),
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Body,
				RetryAfter: apiErr.RetryAfter,
			}
		}
		return "", fmt.Errorf("grok: %w", err)
	}
	return cleanOutput(out), nil
}

func temperaturePtr(t float64) *float64 {
	if t <= 0 {
		return nil
	}
	return &t
}
