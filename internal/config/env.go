// Package config provides application configuration.
package config

import (
	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Field names map to environment variables; the envconfig tag gives the
// exact variable name documented in the CLI --help text.
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the root directory under which collections are stored.
	// Env: DATA_DIR
	// Default: ~/.vexel
	DataDir string `envconfig:"DATA_DIR"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// HFToken authenticates requests to the remote model/dataset hub.
	// Env: HF_TOKEN
	HFToken string `envconfig:"HF_TOKEN"`

	// BatchSize is the configured embedding batch size; see
	// AppConfig.BatchSize for where it is read.
	// Env: BATCH_SIZE (default: 32)
	BatchSize int `envconfig:"BATCH_SIZE" default:"32"`

	// WorkerCount is the configured worker count; see AppConfig.WorkerCount.
	// Env: WORKER_COUNT (default: 1)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"1"`
}

// LoadFromEnv loads configuration from environment variables using envconfig.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts the environment configuration into an AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	c := NewAppConfig()

	if e.Host != "" {
		c.host = e.Host
	}
	if e.Port != 0 {
		c.port = e.Port
	}
	if e.DataDir != "" {
		c.dataDir = e.DataDir
	}
	if e.LogLevel != "" {
		c.logLevel = e.LogLevel
	}
	if e.LogFormat != "" {
		c.logFormat = LogFormat(e.LogFormat)
	}
	if e.APIKeys != "" {
		c.apiKeys = ParseAPIKeys(e.APIKeys)
	}
	if e.HFToken != "" {
		c.hfToken = e.HFToken
	}
	if e.BatchSize > 0 {
		c.batchSize = e.BatchSize
	}
	if e.WorkerCount > 0 {
		c.workerCount = e.WorkerCount
	}

	return c
}
