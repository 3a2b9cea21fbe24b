// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultLogLevel        = "INFO"
	DefaultSearchLimit     = 10
	DefaultMaxSearchLimit  = 100
	DefaultBatchSize       = 32
	DefaultModelVariant    = "model.onnx"
	DefaultModelBackend    = "go"
	DefaultWorkerCount     = 1
	remoteHubSentinelCheck = "hf://"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// AppConfig holds the main application configuration.
//
// Configuration is loaded in the following order (later sources override earlier):
//  1. Default values
//  2. .env file (if present)
//  3. Environment variables
//  4. Command line flags
type AppConfig struct {
	host        string
	port        int
	dataDir     string
	logLevel    string
	logFormat   LogFormat
	apiKeys     []string
	hfToken     string
	batchSize   int
	searchLimit int
	workerCount int
}

// IsHubRef reports whether path refers to the remote model/dataset hub
// rather than a local directory.
func IsHubRef(path string) bool {
	return strings.HasPrefix(path, remoteHubSentinelCheck)
}

// DefaultDataDir returns the default data directory, rooted in the user's home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vexel"
	}
	return filepath.Join(home, ".vexel")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:        DefaultHost,
		port:        DefaultPort,
		dataDir:     DefaultDataDir(),
		logLevel:    DefaultLogLevel,
		logFormat:   LogFormatPretty,
		apiKeys:     []string{},
		batchSize:   DefaultBatchSize,
		searchLimit: DefaultSearchLimit,
		workerCount: DefaultWorkerCount,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the root data directory under which collections are stored.
func (c AppConfig) DataDir() string { return c.dataDir }

// CollectionsDir returns the root directory under which named collections live.
func (c AppConfig) CollectionsDir() string {
	return filepath.Join(c.dataDir, "collections")
}

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// HFToken returns the hub authentication token.
func (c AppConfig) HFToken() string { return c.hfToken }

// BatchSize returns the configured embedding batch size. It is reported by
// LogAttrs; the index command takes its batch size from --batch-size
// (default DefaultBatchSize) and does not read this value.
func (c AppConfig) BatchSize() int { return c.batchSize }

// SearchLimit returns the default search result limit.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// WorkerCount returns the configured worker count. It is reported by
// LogAttrs; the ANN insertion pool in infrastructure/ann is sized by
// runtime.GOMAXPROCS(0) and does not read this value.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.MkdirAll(c.CollectionsDir(), 0o755); err != nil {
		return fmt.Errorf("create collections directory: %w", err)
	}
	return nil
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.dataDir = dir }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithHFToken sets the hub authentication token.
func WithHFToken(token string) AppConfigOption {
	return func(c *AppConfig) { c.hfToken = token }
}

// WithBatchSize sets the default embedding batch size.
func WithBatchSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithWorkerCount sets the configured worker count (see WorkerCount).
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
// This copies all fields from the receiver and then applies the options,
// making it safe to use when adding new fields to AppConfig.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration at startup.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("log_format", string(c.logFormat)),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Int("batch_size", c.batchSize),
		slog.Int("worker_count", c.workerCount),
	}
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
