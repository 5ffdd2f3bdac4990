// internal/genai/genai.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"finlife-navigator/internal/common/config"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
)

var (
	ErrMissingAPIKey    = errors.New("GENAI_API_KEY_MISSING")
	ErrGenAITimeout     = errors.New("GENAI_TIMEOUT")
	ErrGenAIUnavailable = errors.New("GENAI_UNAVAILABLE")
)

// Generator produces free text. Failures come back in-band as a diagnostic
// string, never as an error.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) string
}

// StructuredGenerator asks for a JSON object and returns nil on any failure.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, maxTokens int) map[string]interface{}
}

type Client interface {
	Generator
	StructuredGenerator
}

// backend is one provider's raw completion call.
type backend interface {
	name() string
	complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// New builds the client for the configured provider. A missing API key is not
// an error here: every call then answers with the missing-key diagnostic.
func New(cfg config.GenAIConfig, log logger.Logger) (Client, error) {
	var b backend
	switch cfg.Provider {
	case config.GenAIProviderGateway, "":
		b = newGatewayBackend(cfg)
	case config.GenAIProviderAnthropic:
		b = newAnthropicBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported genai provider %q", cfg.Provider)
	}
	return newService(b, cfg.APIKey != "", log), nil
}

type service struct {
	backend backend
	hasKey  bool
	logger  logger.Logger
}

func newService(b backend, hasKey bool, log logger.Logger) *service {
	return &service{
		backend: b,
		hasKey:  hasKey,
		logger: log.WithFields(map[string]interface{}{
			"component": "genai",
			"provider":  b.name(),
		}),
	}
}

func (s *service) Generate(ctx context.Context, prompt string, maxTokens int) string {
	if !s.hasKey {
		return MissingKeyDiagnostic(prompt)
	}

	text, err := s.backend.complete(ctx, prompt, maxTokens)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("genai").Inc()
		s.logger.Warn("generation failed", map[string]interface{}{
			"error":     err.Error(),
			"maxTokens": maxTokens,
		})
		return ErrorDiagnostic(err)
	}
	return strings.TrimSpace(text)
}

func (s *service) GenerateStructured(ctx context.Context, prompt string, maxTokens int) map[string]interface{} {
	if !s.hasKey {
		return nil
	}

	text, err := s.backend.complete(ctx, prompt, maxTokens)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("genai").Inc()
		s.logger.Warn("structured generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	out, err := ParseJSONObject(text)
	if err != nil {
		s.logger.Warn("structured generation returned invalid JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return out
}

// MissingKeyDiagnostic echoes the prompt so callers still see what was asked.
func MissingKeyDiagnostic(prompt string) string {
	return "[GenAI API key not set] " + prompt
}

func ErrorDiagnostic(err error) string {
	return fmt.Sprintf("[GenAI error: %v]", err)
}

// IsDiagnostic reports whether text is an in-band failure marker.
func IsDiagnostic(text string) bool {
	return strings.HasPrefix(text, "[GenAI ")
}

// ParseJSONObject extracts the first JSON object from model output, tolerating
// markdown code fences and surrounding prose.
func ParseJSONObject(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}
