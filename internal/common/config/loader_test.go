package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
apis:
  genai:
    base_url: http://localhost:9000
workers:
  navigate-query:
    enabled: true
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "finlife-navigator", cfg.App.Name)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, GenAIProviderGateway, cfg.APIs.GenAI.Provider)
	assert.Equal(t, 60000, cfg.APIs.GenAI.Timeout)
	assert.Equal(t, DefaultPlaidBaseURL, cfg.APIs.Plaid.BaseURL)
	assert.Equal(t, FinDataSourcePlaid, cfg.FinData.Source)
	assert.Equal(t, 30000, cfg.Orchestrator.HandlerTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)

	worker := cfg.Workers["navigate-query"]
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30000, worker.Timeout)
	assert.Equal(t, 3, worker.MaxRetries)
}

func TestLoadFromFile_EnvPlaceholdersAndFallbacks(t *testing.T) {
	t.Setenv("TEST_GENAI_URL", "http://gateway.internal")
	t.Setenv("GENAI_API_KEY", "genai-key")
	t.Setenv("PLAID_CLIENT_ID", "client")
	t.Setenv("PLAID_SECRET", "secret")
	t.Setenv("PLAID_ACCESS_TOKEN", "")
	t.Setenv("ACCESS_TOKEN", "legacy-token")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: localhost:26500
apis:
  genai:
    base_url: ${TEST_GENAI_URL}
`))
	require.NoError(t, err)

	assert.Equal(t, "http://gateway.internal", cfg.APIs.GenAI.BaseURL)
	assert.Equal(t, "genai-key", cfg.APIs.GenAI.APIKey)
	assert.Equal(t, "client", cfg.APIs.Plaid.ClientID)
	assert.Equal(t, "secret", cfg.APIs.Plaid.Secret)
	assert.Equal(t, "legacy-token", cfg.APIs.Plaid.AccessToken)
}

func TestLoadFromFile_AnthropicKeyFallback(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: localhost:26500
apis:
  genai:
    provider: anthropic
`))
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", cfg.APIs.GenAI.APIKey)
	assert.NotEmpty(t, cfg.APIs.GenAI.Model)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		errContain string
	}{
		{
			name:       "missing broker",
			body:       "apis:\n  genai:\n    base_url: http://x\n",
			errContain: "camunda.broker_address",
		},
		{
			name:       "gateway without url",
			body:       "camunda:\n  broker_address: b:1\n",
			errContain: "apis.genai.base_url",
		},
		{
			name:       "unknown provider",
			body:       "camunda:\n  broker_address: b:1\napis:\n  genai:\n    provider: oracle\n",
			errContain: "not supported",
		},
		{
			name:       "ledger without postgres",
			body:       minimalConfig + "findata:\n  source: ledger\n",
			errContain: "database.postgres.host",
		},
		{
			name:       "cache without redis",
			body:       minimalConfig + "findata:\n  cache_enabled: true\n",
			errContain: "database.redis.address",
		},
		{
			name:       "sns without topic",
			body:       minimalConfig + "notifications:\n  sns:\n    enabled: true\n",
			errContain: "topic_arn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContain)
		})
	}
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"classify-query": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "classify-query"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "classify-query").MaxJobsActive)

	assert.True(t, IsWorkerEnabled(cfg, "allocate-portfolio"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "allocate-portfolio").Timeout)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
