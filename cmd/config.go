package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fitz/trailmap/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
	Long:  `View and modify configuration settings for Trailmap.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the .env file (local or global).

Use --global flag to set in the global configuration (~/.trailmap/config).
Otherwise, sets in the local .env file.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := strings.ToUpper(args[0])
		value := args[1]
		global, _ := cmd.Flags().GetBool("global")

		if !knownKey(key) {
			exitWithError(fmt.Errorf("unknown configuration key %q (run 'trailmap config list' to see all keys)", key))
		}

		if global {
			if err := config.SetGlobalConfig(key, value); err != nil {
				exitWithError(err)
			}
			fmt.Printf("✓ Set %s (global)\n", key)
			return
		}

		dir, _ := cmd.Flags().GetString("dir")
		absDir, err := filepath.Abs(dir)
		if err != nil {
			exitWithError(fmt.Errorf("invalid directory: %w", err))
		}
		if err := config.Set(absDir, key, value); err != nil {
			exitWithError(err)
		}
		fmt.Printf("✓ Set %s (local)\n", key)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Long:  `Retrieve a configuration value from the .env file (local or global).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := strings.ToUpper(args[0])
		global, _ := cmd.Flags().GetBool("global")

		var value string
		var err error
		if global {
			value, err = config.GetGlobalConfig(key)
		} else {
			dir, _ := cmd.Flags().GetString("dir")
			absDir, absErr := filepath.Abs(dir)
			if absErr != nil {
				exitWithError(fmt.Errorf("invalid directory: %w", absErr))
			}
			value, err = config.Get(absDir, key)
		}
		if err != nil {
			exitWithError(err)
		}

		fmt.Printf("%s=%s\n", key, value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Long:  `Display the resolved configuration and report any problems with it.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		absDir, err := filepath.Abs(dir)
		if err != nil {
			exitWithError(fmt.Errorf("invalid directory: %w", err))
		}

		cfg, err := config.Load(absDir)
		if cfg == nil {
			exitWithError(err)
		}
		if err != nil {
			// If validation fails, still show what we can load
			fmt.Println("Configuration (some values are missing or invalid):")
		} else {
			fmt.Println("Configuration:")
		}

		for _, line := range configLines(cfg) {
			fmt.Printf("  %s\n", line)
		}
		if err != nil {
			fmt.Printf("\nProblems: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)

	configSetCmd.Flags().Bool("global", false, "Set in global config instead of local")
	configGetCmd.Flags().Bool("global", false, "Read from global config instead of local")
}

func knownKey(key string) bool {
	for _, k := range config.Keys {
		if k.Name == key {
			return true
		}
	}
	return false
}

// configLines renders the configuration with secrets masked.
func configLines(cfg *config.Config) []string {
	return []string{
		"TRAILMAP_STORE: " + cfg.Store,
		"TRAILMAP_LLM: " + cfg.LLM,
		"TRAILMAP_REMOTE_TIMEOUT: " + cfg.RemoteTimeout.String(),
		"TRAILMAP_LOG_LEVEL: " + cfg.LogLevel,
		"NEO4J_URI: " + cfg.Neo4jURI,
		"NEO4J_USERNAME: " + cfg.Neo4jUsername,
		"NEO4J_PASSWORD: " + maskPassword(cfg.Neo4jPassword),
		"NEO4J_DATABASE: " + cfg.Neo4jDatabase,
		"NEO4J_IMAGE: " + cfg.Neo4jImage,
		"NEO4J_CONTAINER_NAME: " + cfg.Neo4jContainerName,
		"POSTGRES_HOST: " + cfg.PostgresHost,
		"POSTGRES_PORT: " + cfg.PostgresPort,
		"POSTGRES_USER: " + cfg.PostgresUser,
		"POSTGRES_PASSWORD: " + maskPassword(cfg.PostgresPassword),
		"POSTGRES_DATABASE: " + cfg.PostgresDatabase,
		"POSTGRES_IMAGE: " + cfg.PostgresImage,
		"POSTGRES_CONTAINER_NAME: " + cfg.PostgresContainerName,
		"GEMINI_API_KEY: " + maskPassword(cfg.GeminiAPIKey),
		"GEMINI_MODEL: " + cfg.GeminiModel,
	}
}

// maskPassword masks a password string for display.
func maskPassword(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
