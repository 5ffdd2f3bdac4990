// internal/genai/gateway.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finlife-navigator/internal/common/config"
)

const gatewayPath = "/api/ai/generate"

// gatewayBackend talks to the internal AI gateway.
type gatewayBackend struct {
	baseURL     string
	apiKey      string
	timeout     time.Duration
	maxRetries  int
	temperature float64
	client      *http.Client
}

func newGatewayBackend(cfg config.GenAIConfig) *gatewayBackend {
	return &gatewayBackend{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		timeout:     config.GetDuration(cfg.Timeout),
		maxRetries:  cfg.MaxRetries,
		temperature: cfg.Temperature,
		// deadline comes from the context
		client: &http.Client{},
	}
}

func (g *gatewayBackend) name() string { return config.GenAIProviderGateway }

func (g *gatewayBackend) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	body, err := json.Marshal(map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  maxTokens,
		"temperature": g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenAIUnavailable, err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrGenAITimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+gatewayPath, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenAIUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if g.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+g.apiKey)
		}

		resp, lastErr = g.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", ErrGenAITimeout
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrGenAIUnavailable, lastErr)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrGenAIUnavailable, err)
	}

	return apiResponse.Text, nil
}
