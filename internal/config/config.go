package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLogLevel       = "info"

	// SettingsEnvPrefix selects environment variables copied into the host settings.
	SettingsEnvPrefix = "JSON_API_"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Port                    string
	ConfigFile              string
	WatchConfig             bool
	ShutdownGracePeriod     time.Duration
	ReadHeaderTimeout       time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	EnableRequestLogging    bool
	RateLimitRPS            float64
	RateLimitBurst          int
	LogLevel                string
	StrictRenderingStrategy bool
	// Settings seeds the host settings object.
	Settings map[string]any
	// CLISettings holds the decoded --set values. Reloads apply them last.
	CLISettings map[string]any
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                    string         `yaml:"port"`
	ShutdownGracePeriod     string         `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout       string         `yaml:"read_header_timeout"`
	WriteTimeout            string         `yaml:"write_timeout"`
	IdleTimeout             string         `yaml:"idle_timeout"`
	EnableRequestLogging    *bool          `yaml:"enable_request_logging"`
	LogLevel                string         `yaml:"log_level"`
	StrictRenderingStrategy bool           `yaml:"strict_rendering_strategy"`
	RateLimit               yamlRateLimit  `yaml:"rate_limit"`
	Settings                map[string]any `yaml:"settings"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile              string
	WatchConfig             bool
	Port                    *string
	RateLimitRPS            *float64
	RateLimitBurst          *int
	LogLevel                *string
	StrictRenderingStrategy bool
	// Settings holds raw KEY=VALUE pairs; values are decoded as YAML scalars.
	Settings map[string]string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
		cfg.ConfigFile = overrides.ConfigFile
	}

	applyEnvConfig(&cfg)

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadSettings re-reads the host settings from path and the environment,
// ignoring the rest of the file. It backs live reloads.
func LoadSettings(path string) (map[string]any, error) {
	settings := make(map[string]any)
	if path != "" {
		yamlCfg, err := loadFromFile(path)
		if err != nil {
			return nil, err
		}
		for key, value := range yamlCfg.Settings {
			settings[key] = value
		}
	}
	for key, value := range envSettings() {
		settings[key] = value
	}
	return settings, nil
}

// ReloadSettings re-reads the host settings from path and the environment
// and applies CLISettings on top, keeping the startup precedence.
func (c Config) ReloadSettings(path string) (map[string]any, error) {
	settings, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	for key, value := range c.CLISettings {
		settings[key] = value
	}
	return settings, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             defaultLogLevel,
		Settings:             map[string]any{},
		CLISettings:          map[string]any{},
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	cfg.StrictRenderingStrategy = cfg.StrictRenderingStrategy || yamlCfg.StrictRenderingStrategy

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	for key, value := range yamlCfg.Settings {
		cfg.Settings[key] = value
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	for key, value := range envSettings() {
		cfg.Settings[key] = value
	}
}

// envSettings collects every JSON_API_* environment variable.
func envSettings() map[string]any {
	out := make(map[string]any)
	for _, kv := range os.Environ() {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, SettingsEnvPrefix) {
			continue
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		out[key] = ParseValue(raw)
	}
	return out
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	cfg.WatchConfig = overrides.WatchConfig
	cfg.StrictRenderingStrategy = cfg.StrictRenderingStrategy || overrides.StrictRenderingStrategy

	for key, raw := range overrides.Settings {
		value := ParseValue(raw)
		cfg.CLISettings[key] = value
		cfg.Settings[key] = value
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.WatchConfig && cfg.ConfigFile == "" {
		return fmt.Errorf("watching requires a config file")
	}
	for key := range cfg.Settings {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("setting names cannot be empty")
		}
	}
	return nil
}

// ParseValue decodes a raw flag or environment value as a YAML scalar, so
// "true" becomes a bool and "3" an int. Anything that is not a scalar is
// kept as the original string.
func ParseValue(raw string) any {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil || len(node.Content) != 1 {
		return raw
	}
	scalar := node.Content[0]
	if scalar.Kind != yaml.ScalarNode {
		return raw
	}

	var value any
	if err := scalar.Decode(&value); err != nil || value == nil {
		return raw
	}
	return value
}
