package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/nudgyapp/companion/src/companionagent"
	"github.com/nudgyapp/companion/src/config"
	"github.com/nudgyapp/companion/src/fallback"
	"github.com/nudgyapp/companion/src/llmclient"
	"github.com/nudgyapp/companion/src/session"
	"github.com/nudgyapp/companion/src/storage"
)

// loadConfig builds the effective configuration with CLI flags on top.
func loadConfig(cli *CLI) (*config.Config, error) {
	cfg, err := config.NewLoader().Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.APIKey != "" {
		cfg.API.APIKey = cli.APIKey
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.Model != "" {
		cfg.API.Model = cli.Model
	}
	return cfg, nil
}

func newModelClient(cfg *config.Config, model string, logger *slog.Logger) *llmclient.Client {
	return llmclient.NewClient(llmclient.Config{
		APIKey:  cfg.API.APIKey,
		BaseURL: cfg.API.BaseURL,
		Model:   model,

		Temperature: cfg.API.Temperature,
		MaxTokens:   maxTokens(cfg),

		MaxAttempts:      cfg.API.MaxAttempts,
		RetryDelay:       time.Duration(cfg.API.RetryDelayMs) * time.Millisecond,
		BreakerThreshold: cfg.API.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.API.BreakerCooldownSec) * time.Second,
		FirstByteTimeout: time.Duration(cfg.API.FirstByteTimeoutSec) * time.Second,
		TotalTimeout:     time.Duration(cfg.API.TotalTimeoutSec) * time.Second,

		Logger: logger,
	})
}

func maxTokens(cfg *config.Config) *int {
	if cfg.API.MaxTokens == 0 {
		return nil
	}
	n := cfg.API.MaxTokens
	return &n
}

// buildCompanion assembles a ready-to-chat companion from the config.
// The returned cleanup closes the database.
func buildCompanion(cli *CLI, logger *slog.Logger) (*companionagent.Companion, func(), error) {
	cfg, err := loadConfig(cli)
	if err != nil {
		return nil, nil, err
	}
	if cfg.API.APIKey == "" {
		return nil, nil, fmt.Errorf("no API key: set %s or api.api_key in the config", cfg.API.APIKeyEnvVar)
	}

	db, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	facts, err := storage.NewFactStore(afero.NewOsFs(), cfg.Storage.FactsPath)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var secondary fallback.SecondaryResponder
	if cfg.Fallback.Model != "" && cfg.Fallback.Model != cfg.API.Model {
		secondary = fallback.NewModelResponder(newModelClient(cfg, cfg.Fallback.Model, logger))
	}

	companion, err := companionagent.New(companionagent.Config{
		Model:     newModelClient(cfg, cfg.API.Model, logger),
		Secondary: secondary,
		DB:        db.DB(),
		Facts:     facts,
		ModelName: cfg.API.Model,
		Session: session.Config{
			WindowTurns:        cfg.Session.WindowTurns,
			SummarizeThreshold: cfg.Session.SummarizeThreshold,
		},
		Logger: logger,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return companion, func() { db.Close() }, nil
}
