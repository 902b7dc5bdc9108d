// Package postgres stores journeys as JSONB documents in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// RetryOptions configures the connection retry behavior
type RetryOptions struct {
	// MaxAttempts is the maximum number of connection attempts (default: 30)
	MaxAttempts int
	// InitialDelay is the delay before the first retry (default: 1s)
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries (default: 10s)
	MaxDelay time.Duration
}

// DefaultRetryOptions returns sensible defaults for waiting on PostgreSQL startup
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  30,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// Client wraps the PostgreSQL connection pool
type Client struct {
	db *sql.DB
}

// Config holds PostgreSQL connection configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// ConfigFromEnv creates a Config from environment variables
func ConfigFromEnv() Config {
	return Config{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		Username: getEnvOrDefault("POSTGRES_USER", "trailmap"),
		Password: getEnvOrDefault("POSTGRES_PASSWORD", "password"),
		Database: getEnvOrDefault("POSTGRES_DATABASE", "trailmap"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// DSN returns the PostgreSQL connection string
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database,
	)
}

// NewClient opens the database, checks it answers and creates the schema
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	client := &Client{db: db}

	if err := client.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return client, nil
}

// NewClientWithRetry creates a new client with retry logic
func NewClientWithRetry(ctx context.Context, cfg Config, opts *RetryOptions) (*Client, error) {
	if opts == nil {
		defaultOpts := DefaultRetryOptions()
		opts = &defaultOpts
	}

	var client *Client
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		client, lastErr = NewClient(ctx, cfg)
		if lastErr == nil {
			return client, nil
		}

		if attempt == opts.MaxAttempts {
			break
		}

		delay := opts.InitialDelay * time.Duration(1<<(attempt-1))
		if delay > opts.MaxDelay || delay <= 0 {
			delay = opts.MaxDelay
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", opts.MaxAttempts, lastErr)
}

// Close closes the database connection
func (c *Client) Close(ctx context.Context) error {
	return c.db.Close()
}

// DB returns the underlying database connection for direct queries
func (c *Client) DB() *sql.DB {
	return c.db
}

// BeginTx starts a new transaction
func (c *Client) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS journeys (
		seq        BIGSERIAL UNIQUE,
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		document   JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS journeys_user_seq ON journeys (user_id, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS journey_events (
		id          BIGSERIAL PRIMARY KEY,
		journey_id  TEXT NOT NULL REFERENCES journeys (id) ON DELETE CASCADE,
		op          TEXT NOT NULL,
		step_id     TEXT NOT NULL DEFAULT '',
		details     TEXT[] NOT NULL DEFAULT '{}',
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS journey_events_journey ON journey_events (journey_id, id)`,
}

func (c *Client) initSchema(ctx context.Context) error {
	for _, query := range schema {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to run schema query: %w", err)
		}
	}
	return nil
}
