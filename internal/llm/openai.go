package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Defaults for OpenAI-compatible providers.
const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultAzureAPIVersion = "2024-07-01-preview"
)

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AzureConfig configures the Azure OpenAI adapter. Deployments are used as
// model names.
type AzureConfig struct {
	APIKey           string
	Endpoint         string
	Deployment       string
	VisionDeployment string
	APIVersion       string
}

// OpenAI serves text and vision through the chat completions API, either
// from OpenAI itself or from an Azure OpenAI resource.
type OpenAI struct {
	name        string
	client      *openai.Client
	textModel   string
	visionModel string
}

// NewOpenAI creates an OpenAI adapter.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		name:        "openai",
		client:      openai.NewClientWithConfig(clientCfg),
		textModel:   cfg.Model,
		visionModel: cfg.Model,
	}
}

// NewAzure creates an Azure OpenAI adapter.
func NewAzure(cfg AzureConfig) *OpenAI {
	if cfg.Deployment == "" {
		cfg.Deployment = DefaultOpenAIModel
	}
	if cfg.VisionDeployment == "" {
		cfg.VisionDeployment = cfg.Deployment
	}
	clientCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	clientCfg.APIVersion = DefaultAzureAPIVersion
	if cfg.APIVersion != "" {
		clientCfg.APIVersion = cfg.APIVersion
	}
	// Deployment names are used verbatim.
	clientCfg.AzureModelMapperFunc = func(model string) string { return model }

	return &OpenAI{
		name:        "azure",
		client:      openai.NewClientWithConfig(clientCfg),
		textModel:   cfg.Deployment,
		visionModel: cfg.VisionDeployment,
	}
}

// Name implements TextModel.
func (o *OpenAI) Name() string { return o.name }

// Generate implements TextModel.
func (o *OpenAI) Generate(ctx context.Context, req TextRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	out, err := o.complete(ctx, o.textModel, messages, req.Temperature, req.MaxTokens)
	observe(o.name, opText, err)
	return out, err
}

// Describe implements VisionModel.
func (o *OpenAI) Describe(ctx context.Context, req VisionRequest) (string, error) {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: req.Prompt,
	}}
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
				Detail: openai.ImageURLDetailLow,
			},
		})
	}
	messages := []openai.ChatCompletionMessage{{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}}

	out, err := o.complete(ctx, o.visionModel, messages, req.Temperature, req.MaxTokens)
	observe(o.name, opVision, err)
	return out, err
}

func (o *OpenAI) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage, temperature float64, maxTokens int) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", o.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", o.name)
	}
	return cleanOutput(resp.Choices[0].Message.Content), nil
}

func (o *OpenAI) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: o.name, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: o.name, StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("%s: %w", o.name, err)
}
