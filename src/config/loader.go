package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Loader loads configuration from a file over the defaults, applies
// environment overrides, and validates the result.
type Loader struct {
	validator *Validator

	// EnvironmentPrefix prefixes override variables, e.g. COMPANION_.
	EnvironmentPrefix string
}

// NewLoader creates a loader with the standard COMPANION_ env prefix.
func NewLoader() *Loader {
	return &Loader{
		validator:         NewValidator(),
		EnvironmentPrefix: "COMPANION_",
	}
}

// Load builds the effective configuration. A missing file is not an
// error; the defaults apply.
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	if cfg, err := l.loadFile(path); err == nil {
		config = l.mergeConfigs(config, cfg)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	l.applyEnvironmentOverrides(config)
	l.resolveAPIKey(config)

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// SaveFile writes the configuration to a file, creating directories as
// needed.
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs overlays non-zero override fields onto base.
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	if override.API.BaseURL != "" {
		result.API.BaseURL = override.API.BaseURL
	}
	if override.API.APIKey != "" {
		result.API.APIKey = override.API.APIKey
	}
	if override.API.APIKeyEnvVar != "" {
		result.API.APIKeyEnvVar = override.API.APIKeyEnvVar
	}
	if override.API.Model != "" {
		result.API.Model = override.API.Model
	}
	if override.API.Temperature != nil {
		result.API.Temperature = override.API.Temperature
	}
	if override.API.MaxTokens != 0 {
		result.API.MaxTokens = override.API.MaxTokens
	}
	if override.API.MaxAttempts != 0 {
		result.API.MaxAttempts = override.API.MaxAttempts
	}
	if override.API.RetryDelayMs != 0 {
		result.API.RetryDelayMs = override.API.RetryDelayMs
	}
	if override.API.BreakerThreshold != 0 {
		result.API.BreakerThreshold = override.API.BreakerThreshold
	}
	if override.API.BreakerCooldownSec != 0 {
		result.API.BreakerCooldownSec = override.API.BreakerCooldownSec
	}
	if override.API.FirstByteTimeoutSec != 0 {
		result.API.FirstByteTimeoutSec = override.API.FirstByteTimeoutSec
	}
	if override.API.TotalTimeoutSec != 0 {
		result.API.TotalTimeoutSec = override.API.TotalTimeoutSec
	}

	if override.Fallback.Model != "" {
		result.Fallback.Model = override.Fallback.Model
	}

	if override.Session.WindowTurns != 0 {
		result.Session.WindowTurns = override.Session.WindowTurns
	}
	if override.Session.SummarizeThreshold != 0 {
		result.Session.SummarizeThreshold = override.Session.SummarizeThreshold
	}

	if override.Storage.DatabasePath != "" {
		result.Storage.DatabasePath = override.Storage.DatabasePath
	}
	if override.Storage.FactsPath != "" {
		result.Storage.FactsPath = override.Storage.FactsPath
	}

	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvironmentOverrides applies COMPANION_* variables on top of the
// merged configuration.
func (l *Loader) applyEnvironmentOverrides(config *Config) {
	overrides := map[string]*string{
		"API_KEY":   &config.API.APIKey,
		"BASE_URL":  &config.API.BaseURL,
		"MODEL":     &config.API.Model,
		"DB_PATH":   &config.Storage.DatabasePath,
		"LOG_LEVEL": &config.Logging.Level,
	}
	for suffix, target := range overrides {
		if value := os.Getenv(l.EnvironmentPrefix + suffix); value != "" {
			*target = value
		}
	}
}

// resolveAPIKey pulls the key from its env var when not set directly.
func (l *Loader) resolveAPIKey(config *Config) {
	if config.API.APIKey == "" && config.API.APIKeyEnvVar != "" {
		config.API.APIKey = os.Getenv(config.API.APIKeyEnvVar)
	}
}
