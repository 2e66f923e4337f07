package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/hpn/ifixai-chat/internal/adapter"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "IFIXAI"
)

// legacyEnv maps config keys to the unprefixed variables older deployments set.
// The prefixed name always wins.
var legacyEnv = map[string]string{
	"server.port":                    "PORT",
	"database.path":                  "DB_PATH",
	"providers.qwen.base_url":        "QWEN_API_ENDPOINT",
	"providers.qwen.default_model":   "QWEN_MODEL",
	"providers.gpt.default_model":    "GPT_MODEL",
	"providers.gemini.default_model": "GEMINI_MODEL",
	"providers.claude.default_model": "CLAUDE_MODEL",
}

// loadConfig builds a Configuration. Later sources override earlier ones:
// defaults, config.yaml, legacy unprefixed variables, IFIXAI_ variables.
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ifixai")
		v.AddConfigPath("$HOME/.ifixai")
	}

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_", "-", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, &ConfigError{Op: "bind_env", Err: err}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "[CONFIG] no config.yaml found, using defaults and environment")
		} else {
			return nil, &ConfigError{Op: "read", Err: fmt.Errorf("%s: %w", v.ConfigFileUsed(), err)}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Op: "unmarshal", Err: err}
	}

	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 0)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("server.body_limit_mb", 50)

	v.SetDefault("database.path", "data/ifixai.db")

	// Empty base_url is rejected by Validate, so every provider gets one here.
	v.SetDefault("providers.timeout_seconds", 0)
	v.SetDefault("providers.gemini.base_url", adapter.DefaultGeminiBaseURL)
	v.SetDefault("providers.gemini.default_model", adapter.DefaultGeminiModel)
	v.SetDefault("providers.claude.base_url", adapter.DefaultClaudeBaseURL)
	v.SetDefault("providers.claude.default_model", adapter.DefaultClaudeModel)
	v.SetDefault("providers.qwen.base_url", adapter.DefaultQwenBaseURL)
	v.SetDefault("providers.qwen.default_model", adapter.DefaultQwenModel)
	v.SetDefault("providers.gpt.base_url", adapter.DefaultGPTBaseURL)
	v.SetDefault("providers.gpt.default_model", adapter.DefaultGPTModel)

	v.SetDefault("chat.stream_delay_ms", 50)
	v.SetDefault("chat.strict_attachments", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "")
}

// normalize trims trailing slashes from base URLs and accepts a full
// chat/completions endpoint for Qwen, as QWEN_API_ENDPOINT used to hold one.
func normalize(cfg *Configuration) {
	for _, p := range []*ProviderConfig{
		&cfg.Providers.Gemini,
		&cfg.Providers.Claude,
		&cfg.Providers.Qwen,
		&cfg.Providers.GPT,
	} {
		p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	}
	cfg.Providers.Qwen.BaseURL = strings.TrimSuffix(cfg.Providers.Qwen.BaseURL, "/chat/completions")
}
