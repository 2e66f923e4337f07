// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// Providers configuration
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`

	// Chat configuration
	Chat ChatConfig `json:"chat" mapstructure:"chat"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeoutSeconds is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeoutSeconds bounds response writes. Zero disables it, which
	// slow agent replies and streams need.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeoutSeconds is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`

	// BodyLimitMB caps JSON request bodies. Image data URIs make them large.
	BodyLimitMB int `json:"body_limit_mb" mapstructure:"body_limit_mb"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	// Path is the database file. Its directory is created on startup.
	Path string `json:"path" mapstructure:"path"`
}

// ProvidersConfig holds the upstream endpoints for every agent.
type ProvidersConfig struct {
	// TimeoutSeconds bounds each upstream call. Zero means no local timeout.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	Gemini ProviderConfig `json:"gemini" mapstructure:"gemini"`
	Claude ProviderConfig `json:"claude" mapstructure:"claude"`
	Qwen   ProviderConfig `json:"qwen" mapstructure:"qwen"`
	GPT    ProviderConfig `json:"gpt" mapstructure:"gpt"`
}

// Timeout returns TimeoutSeconds as a duration.
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ProviderConfig configures one upstream API.
type ProviderConfig struct {
	// BaseURL is the API root.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// DefaultModel is used when neither the request nor the stored catalogue names one.
	DefaultModel string `json:"default_model" mapstructure:"default_model"`
}

// ChatConfig holds chat pipeline configuration.
type ChatConfig struct {
	// StreamDelayMS is the pause between simulated stream chunks.
	StreamDelayMS int `json:"stream_delay_ms" mapstructure:"stream_delay_ms"`

	// StrictAttachments rejects images sent to agents that cannot read them.
	StrictAttachments bool `json:"strict_attachments" mapstructure:"strict_attachments"`
}

// StreamDelay returns StreamDelayMS as a duration.
func (c ChatConfig) StreamDelay() time.Duration {
	return time.Duration(c.StreamDelayMS) * time.Millisecond
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`

	// OutputPath is the file path for log output (empty for stdout).
	OutputPath string `json:"output_path" mapstructure:"output_path"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
// Returns an error if configuration loading fails.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
// This should be used when you need to specify a non-default configuration file path.
// Returns an error if configuration loading fails.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate checks every section and reports all problems at once.
func (c *Configuration) Validate() error {
	verr := &ValidationError{}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		verr.add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.BodyLimitMB <= 0 {
		verr.add("server.body_limit_mb", "must be positive")
	}
	if c.Database.Path == "" {
		verr.add("database.path", "is required")
	}

	if c.Providers.TimeoutSeconds < 0 {
		verr.add("providers.timeout_seconds", "cannot be negative")
	}
	for _, p := range []struct {
		name string
		cfg  ProviderConfig
	}{
		{"gemini", c.Providers.Gemini},
		{"claude", c.Providers.Claude},
		{"qwen", c.Providers.Qwen},
		{"gpt", c.Providers.GPT},
	} {
		if !isHTTPURL(p.cfg.BaseURL) {
			verr.add("providers."+p.name+".base_url", "%q must be an absolute http(s) URL", p.cfg.BaseURL)
		}
	}

	if c.Chat.StreamDelayMS < 0 {
		verr.add("chat.stream_delay_ms", "cannot be negative")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		verr.add("logging.level", "%q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		verr.add("logging.format", "%q is not one of json, text", c.Logging.Format)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
