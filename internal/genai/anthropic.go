// internal/genai/anthropic.go
package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"finlife-navigator/internal/common/config"
)

// anthropicBackend calls the hosted Messages API.
type anthropicBackend struct {
	client      anthropic.Client
	model       string
	temperature float64
}

func newAnthropicBackend(cfg config.GenAIConfig) *anthropicBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.GetDuration(cfg.Timeout)))
	}

	return &anthropicBackend{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (a *anthropicBackend) name() string { return config.GenAIProviderAnthropic }

func (a *anthropicBackend) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(a.temperature)
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrGenAITimeout
		}
		return "", fmt.Errorf("%w: %v", ErrGenAIUnavailable, err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text in response", ErrGenAIUnavailable)
	}
	return strings.Join(parts, ""), nil
}
