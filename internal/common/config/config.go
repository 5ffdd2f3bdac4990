// internal/common/config/config.go
package config

import "fmt"

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	FinData       FinDataConfig           `mapstructure:"findata"`
	Orchestrator  OrchestratorConfig      `mapstructure:"orchestrator"`
	Allocation    AllocationConfig        `mapstructure:"allocation"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Configured reports whether a host was given at all.
func (p PostgresConfig) Configured() bool {
	return p.Host != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
	Plaid PlaidConfig `mapstructure:"plaid"`
}

const (
	GenAIProviderGateway   = "gateway"
	GenAIProviderAnthropic = "anthropic"
)

type GenAIConfig struct {
	Provider    string  `mapstructure:"provider"` // gateway | anthropic
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	Temperature float64 `mapstructure:"temperature"`
}

type PlaidConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	ClientID    string `mapstructure:"client_id"`
	Secret      string `mapstructure:"secret"`
	AccessToken string `mapstructure:"access_token"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

const (
	FinDataSourcePlaid  = "plaid"
	FinDataSourceLedger = "ledger"
	FinDataSourceAuto   = "auto"
)

type FinDataConfig struct {
	Source       string `mapstructure:"source"` // plaid | ledger | auto
	CacheEnabled bool   `mapstructure:"cache_enabled"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // milliseconds
	L1MaxCost    int64  `mapstructure:"l1_max_cost"`
}

type OrchestratorConfig struct {
	ParallelDispatch    bool `mapstructure:"parallel_dispatch"`
	MaxParallelHandlers int  `mapstructure:"max_parallel_handlers"`
	HandlerTimeout      int  `mapstructure:"handler_timeout"` // milliseconds
}

type AllocationConfig struct {
	UseModelMix bool `mapstructure:"use_model_mix"`
}

type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
