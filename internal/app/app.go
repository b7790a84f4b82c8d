// Package app wires a workspace: config, database, engine and assistant.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/migrate"
	"taskflow/internal/suggest"
)

type Options struct {
	Workspace string
	// ActorID is created on first use; see engine.Bootstrap.
	ActorID string
	Logger  *log.Logger
}

// App is an opened workspace. Close releases the database.
type App struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
	Actor  domain.Member
}

// Open loads taskflow.yml (defaults when absent), migrates the database and
// builds the engine.
func Open(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if _, err := db.EnsureWorkspace(opts.Workspace); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		logger.Debug("no config file, using defaults", "path", config.Path(opts.Workspace))
		cfg = config.Default("taskflow")
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 {
		logger.Info("database migrated", "applied", applied)
	}
	e := engine.New(conn, cfg)
	e.Logger = logger
	assistant, err := NewAssistant(cfg.Assistant, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if assistant != nil {
		e.Assistant = assistant
	}
	a := &App{DB: conn, Config: cfg, Engine: e}
	if strings.TrimSpace(opts.ActorID) != "" {
		actor, err := e.Bootstrap(ctx, opts.ActorID)
		if err != nil {
			conn.Close()
			return nil, err
		}
		a.Actor = actor
	}
	return a, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// NewAssistant builds the recommendation client from config. It returns nil
// when no endpoint is configured, which disables assignee suggestions.
func NewAssistant(cfg config.AssistantConfig, logger *log.Logger) (*suggest.Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, nil
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("assistant timeout: %w", err)
	}
	key := cfg.APIKey()
	if key == "" && cfg.APIKeyEnv != "" {
		logger.Warn("assistant api key not set; suggestions will fail upstream", "env", cfg.APIKeyEnv)
	}
	return &suggest.Client{
		Endpoint:   cfg.Endpoint,
		APIKey:     key,
		AuthHeader: cfg.AuthHeader,
		Headers:    cfg.Headers,
		Model:      cfg.Model,
		MaxTokens:  cfg.MaxTokens,
		Timeout:    timeout,
		Logger:     logger.WithPrefix("assistant"),
	}, nil
}
