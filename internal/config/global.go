package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetGlobalConfigDir returns the path to the global configuration directory.
// This is typically ~/.trailmap/
func GetGlobalConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trailmap"
	}
	return filepath.Join(home, ".trailmap")
}

// GetGlobalConfigPath returns the path to the global configuration file.
func GetGlobalConfigPath() string {
	return filepath.Join(GetGlobalConfigDir(), "config")
}

// EnsureGlobalConfigDir ensures that the global configuration directory exists.
func EnsureGlobalConfigDir() error {
	return os.MkdirAll(GetGlobalConfigDir(), 0755)
}

// LoadGlobalConfig loads configuration from the global config file only,
// falling back to environment variables and defaults. The config is returned
// even when it does not validate.
func LoadGlobalConfig() (*Config, error) {
	envMap, err := godotenv.Read(GetGlobalConfigPath())
	if err != nil {
		envMap = make(map[string]string)
	}
	return build(envMap)
}

// SetGlobalConfig sets a configuration value in the global config file.
func SetGlobalConfig(key, value string) error {
	if err := EnsureGlobalConfigDir(); err != nil {
		return fmt.Errorf("failed to create global config directory: %w", err)
	}
	return setIn(GetGlobalConfigPath(), key, value)
}

// GetGlobalConfig retrieves a configuration value from the global config file.
func GetGlobalConfig(key string) (string, error) {
	return getFrom(GetGlobalConfigPath(), key, "global configuration")
}
