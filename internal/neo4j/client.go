package neo4j

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client wraps the Neo4j driver with application-specific configuration
type Client struct {
	driver neo4j.DriverWithContext
	db     string
}

// Config holds Neo4j connection configuration
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// ConfigFromEnv creates a Config from environment variables
func ConfigFromEnv() Config {
	return Config{
		URI:      getEnvOrDefault("NEO4J_URI", "bolt://localhost:7687"),
		Username: getEnvOrDefault("NEO4J_USERNAME", "neo4j"),
		Password: getEnvOrDefault("NEO4J_PASSWORD", "password"),
		Database: getEnvOrDefault("NEO4J_DATABASE", "neo4j"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// RetryOptions configures the connection retry behavior
type RetryOptions struct {
	// MaxAttempts is the maximum number of connection attempts (default: 30)
	MaxAttempts int
	// InitialDelay is the delay before the first retry (default: 1s)
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries (default: 10s)
	MaxDelay time.Duration
}

// DefaultRetryOptions returns defaults for waiting on a freshly started container
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  30,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// NewClient creates a new Neo4j client
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	client := &Client{
		driver: driver,
		db:     cfg.Database,
	}

	if err := client.initSchema(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return client, nil
}

// NewClientWithRetry keeps calling NewClient until it succeeds, the attempts
// run out or ctx is done.
func NewClientWithRetry(ctx context.Context, cfg Config, opts *RetryOptions) (*Client, error) {
	if opts == nil {
		defaultOpts := DefaultRetryOptions()
		opts = &defaultOpts
	}

	var client *Client
	err := retryWithBackoff(ctx, *opts, func() error {
		var err error
		client, err = NewClient(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func retryWithBackoff(ctx context.Context, opts RetryOptions, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(calculateBackoff(attempt, opts.InitialDelay, opts.MaxDelay)):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", opts.MaxAttempts, lastErr)
}

// calculateBackoff doubles the delay on every attempt up to maxDelay.
func calculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt > 30 {
		return maxDelay
	}
	delay := initialDelay * time.Duration(1<<(attempt-1))
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// Close closes the Neo4j driver
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Session returns a new Neo4j session
func (c *Client) Session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.db,
	})
}

// initSchema creates indexes and constraints for the journey graph
func (c *Client) initSchema(ctx context.Context) error {
	session := c.Session(ctx)
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT journey_id IF NOT EXISTS FOR (j:Journey) REQUIRE j.id IS UNIQUE`,
		`CREATE CONSTRAINT step_id IF NOT EXISTS FOR (s:Step) REQUIRE s.id IS UNIQUE`,
		`CREATE INDEX journey_user IF NOT EXISTS FOR (j:Journey) ON (j.user_id)`,
		`CREATE INDEX step_status IF NOT EXISTS FOR (s:Step) ON (s.status)`,
	}

	for _, query := range queries {
		_, err := session.Run(ctx, query, nil)
		if err != nil {
			return fmt.Errorf("failed to run schema query %q: %w", query, err)
		}
	}

	return nil
}
