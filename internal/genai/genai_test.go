package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"finlife-navigator/internal/common/config"
	"finlife-navigator/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig(baseURL string) config.GenAIConfig {
	return config.GenAIConfig{
		Provider:    config.GenAIProviderGateway,
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Timeout:     2000,
		MaxRetries:  2,
		Temperature: 0.5,
	}
}

func newTestClient(t *testing.T, cfg config.GenAIConfig) Client {
	t.Helper()
	client, err := New(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	return client
}

// ==========================
// Gateway Tests
// ==========================

func TestGateway_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "say hi", body["prompt"])
		assert.Equal(t, float64(40), body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "  hi there \n"})
	}))
	defer server.Close()

	client := newTestClient(t, createTestConfig(server.URL))

	assert.Equal(t, "hi there", client.Generate(context.Background(), "say hi", 40))
}

func TestGateway_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "recovered"})
	}))
	defer server.Close()

	client := newTestClient(t, createTestConfig(server.URL))

	assert.Equal(t, "recovered", client.Generate(context.Background(), "p", 10))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGateway_FailureIsDiagnostic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.MaxRetries = 0
	client := newTestClient(t, cfg)

	text := client.Generate(context.Background(), "p", 10)
	assert.True(t, IsDiagnostic(text))
	assert.Contains(t, text, "[GenAI error:")
	assert.Contains(t, text, "status 500")
}

func TestGateway_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "late"})
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.Timeout = 50
	cfg.MaxRetries = 0
	client := newTestClient(t, cfg)

	text := client.Generate(context.Background(), "p", 10)
	assert.Contains(t, text, "GENAI_TIMEOUT")
}

func TestGenerate_MissingKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.APIKey = ""
	client := newTestClient(t, cfg)

	assert.Equal(t, "[GenAI API key not set] explain bonds", client.Generate(context.Background(), "explain bonds", 10))
	assert.Nil(t, client.GenerateStructured(context.Background(), "json please", 10))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGenerateStructured(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]interface{}
	}{
		{name: "plain object", text: `{"stocks":0.6,"bonds":0.35,"cash":0.05}`, want: map[string]interface{}{"stocks": 0.6, "bonds": 0.35, "cash": 0.05}},
		{name: "fenced", text: "```json\n{\"cash\":0.1}\n```", want: map[string]interface{}{"cash": 0.1}},
		{name: "with prose", text: "Sure! {\"cash\":0.2} Hope that helps.", want: map[string]interface{}{"cash": 0.2}},
		{name: "not json", text: "I cannot help with that", want: nil},
		{name: "broken json", text: "{\"cash\": }", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"text": tt.text})
			}))
			defer server.Close()

			client := newTestClient(t, createTestConfig(server.URL))
			assert.Equal(t, tt.want, client.GenerateStructured(context.Background(), "p", 60))
		})
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(config.GenAIConfig{Provider: "oracle"}, logger.NewNoOpLogger())
	assert.Error(t, err)
}

// ==========================
// Anthropic Tests
// ==========================

func TestAnthropic_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		assert.Equal(t, float64(80), body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Spend less than you earn."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 6}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, config.GenAIConfig{
		Provider: config.GenAIProviderAnthropic,
		BaseURL:  server.URL,
		APIKey:   "sk-test",
		Model:    "claude-test",
		Timeout:  2000,
	})

	assert.Equal(t, "Spend less than you earn.", client.Generate(context.Background(), "budget tip", 80))
}

func TestAnthropic_ErrorIsDiagnostic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, config.GenAIConfig{
		Provider: config.GenAIProviderAnthropic,
		BaseURL:  server.URL,
		APIKey:   "sk-test",
		Model:    "nope",
	})

	text := client.Generate(context.Background(), "p", 10)
	assert.True(t, IsDiagnostic(text))
	assert.Contains(t, text, "GENAI_UNAVAILABLE")
}
