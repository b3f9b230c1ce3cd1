// Package config loads and validates the companion's configuration from
// JSON files under the XDG config directory, with environment overrides.
package config

import "fmt"

// Config is the root configuration.
type Config struct {
	Version  string         `json:"version"`
	API      APIConfig      `json:"api"`
	Fallback FallbackConfig `json:"fallback"`
	Session  SessionConfig  `json:"session"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
}

// APIConfig configures the primary model endpoint.
type APIConfig struct {
	BaseURL      string   `json:"base_url" validate:"omitempty,url"`
	APIKey       string   `json:"api_key"`
	APIKeyEnvVar string   `json:"api_key_env_var"`
	Model        string   `json:"model"`
	Temperature  *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    int      `json:"max_tokens,omitempty" validate:"omitempty,gte=1"`

	MaxAttempts         int `json:"max_attempts,omitempty" validate:"omitempty,gte=1,lte=5"`
	RetryDelayMs        int `json:"retry_delay_ms,omitempty" validate:"omitempty,gte=0"`
	BreakerThreshold    int `json:"breaker_threshold,omitempty" validate:"omitempty,gte=1"`
	BreakerCooldownSec  int `json:"breaker_cooldown_sec,omitempty" validate:"omitempty,gte=1"`
	FirstByteTimeoutSec int `json:"first_byte_timeout_sec,omitempty" validate:"omitempty,gte=1"`
	TotalTimeoutSec     int `json:"total_timeout_sec,omitempty" validate:"omitempty,gte=1"`
}

// FallbackConfig configures the secondary responder. An empty model
// disables the tier; the deterministic responder is always on.
type FallbackConfig struct {
	Model string `json:"model,omitempty"`
}

// SessionConfig configures in-memory conversation handling.
type SessionConfig struct {
	WindowTurns        int `json:"window_turns,omitempty" validate:"omitempty,gte=1"`
	SummarizeThreshold int `json:"summarize_threshold,omitempty" validate:"omitempty,gte=1"`
}

// StorageConfig configures durable storage locations.
type StorageConfig struct {
	DatabasePath string `json:"database_path,omitempty"`
	FactsPath    string `json:"facts_path,omitempty"`
}

// LoggingConfig configures the slog setup.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" validate:"omitempty,log_level"`
	Format string `json:"format,omitempty" validate:"omitempty,log_format"`
}

// ValidationError describes one rejected configuration field.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}
