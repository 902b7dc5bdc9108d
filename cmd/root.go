// Package cmd contains all CLI command definitions.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fitz/trailmap/internal/config"
	"github.com/fitz/trailmap/internal/docker"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trailmap",
	Short: "Trailmap - step-by-step journeys toward personal goals",
	Long: `Trailmap turns a goal into a journey of ordered steps, tracks progress
through them and projects when the goal will be reached from the pace so far.

Journeys can be stored in memory, Neo4j or PostgreSQL and drafted by a
Gemini model or a built-in starter plan. The same engine is exposed to AI
agents over MCP with 'trailmap serve'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		withDocker, _ := cmd.Flags().GetBool("docker")
		if !withDocker {
			return nil
		}
		return ensureDatabaseContainer(cmd)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("dir", "d", ".", "Directory holding the .env configuration")
	rootCmd.PersistentFlags().StringP("user", "u", defaultUser(), "User the journeys belong to")
	rootCmd.PersistentFlags().Bool("docker", false, "Start the configured database container before running")
	rootCmd.PersistentFlags().Bool("wait", false, "Retry connecting until the database is available")
}

func defaultUser() string {
	if u := os.Getenv("TRAILMAP_USER"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("dir")
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}
	cfg, err := config.Load(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'trailmap config list' to see the current values", err)
	}
	return cfg, nil
}

// containerFor returns the container of the configured store, or nil for the
// in-memory store.
func containerFor(cfg *config.Config) *docker.ContainerConfig {
	switch cfg.Store {
	case config.StoreNeo4j:
		return docker.Neo4jContainer(cfg.Neo4jContainerName, cfg.Neo4jImage, cfg.Neo4jUsername, cfg.Neo4jPassword)
	case config.StorePostgres:
		return docker.PostgresContainer(cfg.PostgresContainerName, cfg.PostgresImage, cfg.PostgresPort,
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDatabase)
	default:
		return nil
	}
}

// ensureDatabaseContainer ensures that the container of the configured store is running.
func ensureDatabaseContainer(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	containerCfg := containerFor(cfg)
	if containerCfg == nil {
		return nil
	}

	created, err := docker.EnsureContainer(containerCfg)
	if err != nil {
		return fmt.Errorf("failed to ensure %s container: %w", cfg.Store, err)
	}

	if created {
		fmt.Fprintf(os.Stderr, "✓ Created %s container '%s'\n", cfg.Store, containerCfg.Name)
		fmt.Fprintf(os.Stderr, "  Waiting for %s to be ready...\n", cfg.Store)

		if err := docker.WaitForContainer(containerCfg, 60*time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "  ✓ %s is ready\n", cfg.Store)
		}
	}

	return nil
}
