// Package analogy rewrites soccer commentary as NFL analogies.
package analogy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iconidentify/chalkboard/internal/llm"
)

const analogyPrompt = `You are a sports analyst who explains soccer plays using NFL analogies for American football fans. Convert this soccer commentary into an NFL analogy that American football fans would understand:

"%s"

Instructions:
- Use NFL terminology and concepts
- Compare soccer positions to NFL positions (e.g., striker = receiver making a catch, midfielder = quarterback, defender = linebacker)
- Keep it concise (2-3 sentences max)
- Make it engaging and easy to understand
- Focus on the tactical parallel between the sports

Respond with ONLY the NFL analogy, no preamble.`

const tacticalPrompt = `You are a sports analyst converting soccer plays to NFL analogies.

SOCCER COMMENTARY:
"%s"

RULES:
- Stay FAITHFUL to the soccer commentary - do NOT invent events that aren't described
- Do NOT use real NFL team names, player names, or stadium names
- Use ONLY generic terms: offense, defense, quarterback, receiver, linebacker, cornerback, safety, drive, snap, red zone, end zone, pocket, blitz, coverage, route, completion, sack, interception, touchdown
- Focus on the tactical parallel between what's happening in soccer and how it would translate to football

Write a 2-4 sentence tactical explanation using NFL concepts. Be precise and match the energy/stakes of the original soccer play.

Respond with ONLY the NFL analogy, no preamble or labels.`

const broadcastPrompt = `You are an NFL broadcast commentator. Convert this tactical analysis into exciting play-by-play style commentary.

NFL TACTICAL ANALYSIS:
"%s"

RULES:
- Write 1-2 sentences, 15-35 words total
- Use energetic NFL broadcast style - punchy, dramatic, but NOT cringe or over-the-top
- Do NOT use real NFL team names, player names, or stadium names
- Keep it professional like a real NFL broadcast
- Match the intensity of the play being described

Respond with ONLY the broadcast commentary, no preamble or labels.`

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 10 * time.Second

// Generator produces NFL analogies. It never fails: without a model, or when
// the model errors or runs past its deadline, it answers from the keyword
// stubs.
type Generator struct {
	model   llm.TextModel
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// NewGenerator creates a generator. model may be nil.
func NewGenerator(model llm.TextModel, logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		model:   model,
		timeout: DefaultTimeout,
		logger:  logger.With("component", "analogy"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Available reports whether a text model is configured.
func (g *Generator) Available() bool {
	return g.model != nil
}

// Generate converts soccer commentary into a short NFL analogy.
func (g *Generator) Generate(ctx context.Context, commentary string) string {
	if g.model == nil {
		return StubAnalogy(commentary)
	}

	out, err := g.complete(ctx, fmt.Sprintf(analogyPrompt, commentary), 0, 150)
	if err != nil {
		g.logger.Warn("analogy generation failed, using stub", "error", err)
		return StubAnalogy(commentary)
	}
	return out
}

// NFL produces a tactical analogy and a one-line broadcast call in two
// model calls. Blank input yields two empty strings.
func (g *Generator) NFL(ctx context.Context, commentary string) (string, string) {
	if strings.TrimSpace(commentary) == "" {
		return "", ""
	}
	if g.model == nil {
		return StubNFL(commentary)
	}

	analogy, err := g.complete(ctx, fmt.Sprintf(tacticalPrompt, commentary), 0.7, 200)
	if err != nil {
		g.logger.Warn("nfl analogy failed, using stub", "step", "tactical", "error", err)
		return StubNFL(commentary)
	}

	broadcast, err := g.complete(ctx, fmt.Sprintf(broadcastPrompt, analogy), 0.8, 100)
	if err != nil {
		g.logger.Warn("nfl analogy failed, using stub", "step", "broadcast", "error", err)
		return StubNFL(commentary)
	}
	return analogy, broadcast
}

func (g *Generator) complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.model.Generate(ctx, llm.TextRequest{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%s returned an empty response", g.model.Name())
	}
	return out, nil
}
