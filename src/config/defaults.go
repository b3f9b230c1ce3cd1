package config

// DefaultConfig returns the built-in configuration. Everything here can
// be overridden by a config file or environment variables.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:      "https://api.openai.com/v1",
			APIKeyEnvVar: "COMPANION_API_KEY",
			Model:        "gpt-4o-mini",

			MaxAttempts:         2,
			RetryDelayMs:        1000,
			BreakerThreshold:    3,
			BreakerCooldownSec:  120,
			FirstByteTimeoutSec: 10,
			TotalTimeoutSec:     60,
		},
		Fallback: FallbackConfig{
			Model: "gpt-4o-mini",
		},
		Session: SessionConfig{
			WindowTurns:        30,
			SummarizeThreshold: 20,
		},
		Storage: StorageConfig{
			DatabasePath: DefaultDatabasePath(),
			FactsPath:    DefaultFactsPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
