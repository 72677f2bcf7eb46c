package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iconidentify/chalkboard/internal/config"
	"github.com/iconidentify/chalkboard/internal/llm"
	"github.com/iconidentify/chalkboard/internal/retry"
	"github.com/iconidentify/chalkboard/pkg/grok"
	"github.com/iconidentify/chalkboard/pkg/whisper"
)

// models holds the provider picked for each capability. Any field may be
// nil, which puts that capability in stub mode.
type models struct {
	vision llm.VisionModel
	text   llm.TextModel
	chat   llm.TextModel
	audio  llm.AudioModel
}

func buildModels(ctx context.Context, cfg *config.Config, logger *slog.Logger) (models, error) {
	var p llm.Providers

	if cfg.Gemini.APIKey != "" {
		g, err := llm.NewGemini(ctx, llm.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
		if err != nil {
			logger.Warn("gemini disabled", "error", err)
		} else {
			p.Gemini = g
		}
	}
	if cfg.Azure.APIKey != "" && cfg.Azure.Endpoint != "" {
		p.Azure = llm.NewAzure(llm.AzureConfig{
			APIKey:           cfg.Azure.APIKey,
			Endpoint:         cfg.Azure.Endpoint,
			Deployment:       cfg.Azure.Deployment,
			VisionDeployment: cfg.Azure.VisionDeployment,
			APIVersion:       cfg.Azure.APIVersion,
		})
	}
	if cfg.OpenAI.APIKey != "" {
		p.OpenAI = llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
	}
	if cfg.Grok.APIKey != "" {
		p.Grok = llm.NewGrok(grok.NewClient(grok.Config{
			APIKey:  cfg.Grok.APIKey,
			BaseURL: cfg.Grok.BaseURL,
			Model:   cfg.Grok.Model,
			Timeout: cfg.Grok.Timeout,
		}))
	}

	var w *llm.Whisper
	if cfg.OpenAI.APIKey != "" {
		w = llm.NewWhisper(whisper.NewClient(whisper.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.WhisperModel,
		}), cfg.OpenAI.WhisperModel)
	}

	policy := retry.Config{
		MaxAttempts:   cfg.Providers.MaxAttempts,
		InitialDelay:  cfg.Providers.RetryDelay,
		MaxDelay:      cfg.Providers.MaxRetryDelay,
		BackoffFactor: 2.0,
		JitterFactor:  0.2,
	}

	var out models

	visionModel, err := llm.Select(cfg.Providers.Vision, p)
	if err != nil {
		return out, fmt.Errorf("vision provider: %w", err)
	}
	if visionModel != nil {
		out.vision = llm.WithVisionRetry(visionModel, policy)
	}

	textModel, err := llm.Select(cfg.Providers.Text, p)
	if err != nil {
		return out, fmt.Errorf("text provider: %w", err)
	}
	if textModel != nil {
		out.text = llm.WithRetry(textModel, policy)
	}

	// Chat retries on its own schedule.
	chatModel, err := llm.Select(cfg.Providers.Chat, p)
	if err != nil {
		return out, fmt.Errorf("chat provider: %w", err)
	}
	if chatModel != nil {
		out.chat = chatModel
	}

	audioModel, err := llm.SelectAudio(cfg.Providers.Audio, w, p.Gemini)
	if err != nil {
		return out, fmt.Errorf("audio provider: %w", err)
	}
	if audioModel != nil {
		out.audio = llm.WithAudioRetry(audioModel, policy)
	}

	logger.Info("providers selected",
		"vision", modelName(out.vision),
		"text", modelName(out.text),
		"chat", modelName(out.chat),
		"audio", modelName(out.audio),
	)
	return out, nil
}

func modelName(m interface{ Name() string }) string {
	if m == nil {
		return "stub"
	}
	return m.Name()
}
