package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fitz/trailmap/internal/config"
	"github.com/fitz/trailmap/internal/journey"
	"github.com/fitz/trailmap/internal/llm"
	"github.com/fitz/trailmap/internal/neo4j"
	"github.com/fitz/trailmap/internal/postgres"
	"github.com/fitz/trailmap/internal/store/memory"
	"github.com/spf13/cobra"
)

// app holds the wired engine for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *journey.Service
	closers []func(context.Context) error
}

// openApp loads configuration and wires logger, store and collaborators.
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(cfg.LogLevel)}

	wait, _ := cmd.Flags().GetBool("wait")
	store, err := a.openStore(ctx, wait)
	if err != nil {
		return nil, err
	}

	generator, adjuster, err := a.openCollaborators(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.service = journey.NewService(store, generator, journey.CoordinatorOptions{
		Logger:        a.logger,
		RemoteTimeout: cfg.RemoteTimeout,
		Adjuster:      adjuster,
	})
	return a, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	// Log to stderr (stdout is for command output and the MCP protocol)
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
}

func (a *app) openStore(ctx context.Context, wait bool) (journey.Store, error) {
	switch a.cfg.Store {
	case config.StoreNeo4j:
		cfg := neo4j.Config{
			URI:      a.cfg.Neo4jURI,
			Username: a.cfg.Neo4jUsername,
			Password: a.cfg.Neo4jPassword,
			Database: a.cfg.Neo4jDatabase,
		}
		a.logger.Info("connecting to Neo4j", "uri", cfg.URI, "database", cfg.Database)

		var client *neo4j.Client
		var err error
		if wait {
			client, err = neo4j.NewClientWithRetry(ctx, cfg, nil)
		} else {
			client, err = neo4j.NewClient(ctx, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Neo4j: %w\nEnsure the Neo4j container is running ('trailmap db up')", err)
		}
		a.closers = append(a.closers, client.Close)
		return neo4j.NewJourneyRepository(client), nil

	case config.StorePostgres:
		cfg := postgres.Config{
			Host:     a.cfg.PostgresHost,
			Port:     a.cfg.PostgresPort,
			Username: a.cfg.PostgresUser,
			Password: a.cfg.PostgresPassword,
			Database: a.cfg.PostgresDatabase,
		}
		a.logger.Info("connecting to PostgreSQL", "host", cfg.Host, "database", cfg.Database)

		var client *postgres.Client
		var err error
		if wait {
			client, err = postgres.NewClientWithRetry(ctx, cfg, nil)
		} else {
			client, err = postgres.NewClient(ctx, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w\nEnsure the PostgreSQL container is running ('trailmap db up')", err)
		}
		a.closers = append(a.closers, client.Close)
		return postgres.NewJourneyStore(client), nil

	default:
		a.logger.Warn("using in-memory store, journeys are lost when the process exits")
		return memory.New(), nil
	}
}

func (a *app) openCollaborators(ctx context.Context) (journey.Generator, journey.Adjuster, error) {
	if a.cfg.LLM != config.LLMGemini {
		return llm.Static{}, llm.Static{}, nil
	}
	g, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey: a.cfg.GeminiAPIKey,
		Model:  a.cfg.GeminiModel,
		Logger: a.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return llm.Fallback{Primary: g, Logger: a.logger}, g, nil
}

// Close waits for outstanding store writes and releases connections.
func (a *app) Close(ctx context.Context) {
	if a.service != nil {
		a.service.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// mustOpen is openApp for command Run functions.
func mustOpen(ctx context.Context, cmd *cobra.Command) *app {
	a, err := openApp(ctx, cmd)
	if err != nil {
		exitWithError(err)
	}
	return a
}

// fail closes the app before exiting so confirmed writes are not cut short.
func (a *app) fail(ctx context.Context, err error) {
	a.Close(ctx)
	exitWithError(err)
}
