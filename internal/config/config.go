// Package config manages application configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreNeo4j    = "neo4j"
	StorePostgres = "postgres"
)

// Generation backends.
const (
	LLMStatic = "static"
	LLMGemini = "gemini"
)

// Keys lists every configuration key with its default. An empty default
// means the key has none.
var Keys = []struct {
	Name    string
	Default string
}{
	{"TRAILMAP_STORE", StoreMemory},
	{"TRAILMAP_LLM", LLMStatic},
	{"TRAILMAP_REMOTE_TIMEOUT", "10s"},
	{"TRAILMAP_LOG_LEVEL", "info"},
	{"NEO4J_URI", "neo4j://localhost:7687"},
	{"NEO4J_USERNAME", "neo4j"},
	{"NEO4J_PASSWORD", ""},
	{"NEO4J_DATABASE", "neo4j"},
	{"NEO4J_IMAGE", "neo4j:5.25-community"},
	{"NEO4J_CONTAINER_NAME", "trailmap-neo4j"},
	{"POSTGRES_HOST", "localhost"},
	{"POSTGRES_PORT", "5432"},
	{"POSTGRES_USER", "trailmap"},
	{"POSTGRES_PASSWORD", ""},
	{"POSTGRES_DATABASE", "trailmap"},
	{"POSTGRES_IMAGE", "postgres:16-alpine"},
	{"POSTGRES_CONTAINER_NAME", "trailmap-postgres"},
	{"GEMINI_API_KEY", ""},
	{"GEMINI_MODEL", "gemini-2.5-flash"},
}

// Config holds the application configuration.
type Config struct {
	Store         string
	LLM           string
	RemoteTimeout time.Duration
	LogLevel      string

	Neo4jURI           string
	Neo4jUsername      string
	Neo4jPassword      string
	Neo4jDatabase      string
	Neo4jImage         string
	Neo4jContainerName string

	PostgresHost          string
	PostgresPort          string
	PostgresUser          string
	PostgresPassword      string
	PostgresDatabase      string
	PostgresImage         string
	PostgresContainerName string

	GeminiAPIKey string
	GeminiModel  string
}

// Load reads configuration from a .env file in the specified directory.
// Values are taken from the local .env first, then the global config
// (~/.trailmap/config), then environment variables, then defaults.
func Load(dir string) (*Config, error) {
	localEnvMap, err := godotenv.Read(GetConfigPath(dir))
	if err != nil {
		localEnvMap = make(map[string]string)
	}
	globalEnvMap, err := godotenv.Read(GetGlobalConfigPath())
	if err != nil {
		globalEnvMap = make(map[string]string)
	}

	cfg, err := build(localEnvMap, globalEnvMap)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// build resolves every key against the maps in order, then the environment,
// then the key's default.
func build(maps ...map[string]string) (*Config, error) {
	lookup := func(key string) string {
		for _, m := range maps {
			if value, ok := m[key]; ok && value != "" {
				return value
			}
		}
		if value := os.Getenv(key); value != "" {
			return value
		}
		return defaultFor(key)
	}

	cfg := &Config{
		Store:    strings.ToLower(lookup("TRAILMAP_STORE")),
		LLM:      strings.ToLower(lookup("TRAILMAP_LLM")),
		LogLevel: strings.ToLower(lookup("TRAILMAP_LOG_LEVEL")),

		Neo4jURI:           lookup("NEO4J_URI"),
		Neo4jUsername:      lookup("NEO4J_USERNAME"),
		Neo4jPassword:      lookup("NEO4J_PASSWORD"),
		Neo4jDatabase:      lookup("NEO4J_DATABASE"),
		Neo4jImage:         lookup("NEO4J_IMAGE"),
		Neo4jContainerName: lookup("NEO4J_CONTAINER_NAME"),

		PostgresHost:          lookup("POSTGRES_HOST"),
		PostgresPort:          lookup("POSTGRES_PORT"),
		PostgresUser:          lookup("POSTGRES_USER"),
		PostgresPassword:      lookup("POSTGRES_PASSWORD"),
		PostgresDatabase:      lookup("POSTGRES_DATABASE"),
		PostgresImage:         lookup("POSTGRES_IMAGE"),
		PostgresContainerName: lookup("POSTGRES_CONTAINER_NAME"),

		GeminiAPIKey: lookup("GEMINI_API_KEY"),
		GeminiModel:  lookup("GEMINI_MODEL"),
	}

	timeout, err := time.ParseDuration(lookup("TRAILMAP_REMOTE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRAILMAP_REMOTE_TIMEOUT: %w", err)
	}
	cfg.RemoteTimeout = timeout

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaultFor(key string) string {
	for _, k := range Keys {
		if k.Name == key {
			return k.Default
		}
	}
	return ""
}

// Validate checks the enumerated settings and that every field the selected
// backends need is set. All problems are reported at once.
func (c *Config) Validate() error {
	var problems []string
	var missing []string

	switch c.Store {
	case StoreMemory:
	case StoreNeo4j:
		missing = appendMissing(missing,
			"NEO4J_URI", c.Neo4jURI,
			"NEO4J_USERNAME", c.Neo4jUsername,
			"NEO4J_PASSWORD", c.Neo4jPassword,
			"NEO4J_DATABASE", c.Neo4jDatabase)
	case StorePostgres:
		missing = appendMissing(missing,
			"POSTGRES_HOST", c.PostgresHost,
			"POSTGRES_PORT", c.PostgresPort,
			"POSTGRES_USER", c.PostgresUser,
			"POSTGRES_PASSWORD", c.PostgresPassword,
			"POSTGRES_DATABASE", c.PostgresDatabase)
	default:
		problems = append(problems, fmt.Sprintf("TRAILMAP_STORE must be one of memory, neo4j, postgres (got %q)", c.Store))
	}

	switch c.LLM {
	case LLMStatic:
	case LLMGemini:
		missing = appendMissing(missing, "GEMINI_API_KEY", c.GeminiAPIKey)
	default:
		problems = append(problems, fmt.Sprintf("TRAILMAP_LLM must be one of static, gemini (got %q)", c.LLM))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		problems = append(problems, fmt.Sprintf("TRAILMAP_LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel))
	}
	if c.RemoteTimeout <= 0 {
		problems = append(problems, "TRAILMAP_REMOTE_TIMEOUT must be positive")
	}

	if len(missing) > 0 {
		problems = append([]string{"missing required configuration fields: " + strings.Join(missing, ", ")}, problems...)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// appendMissing takes key, value pairs and appends the keys whose value is empty.
func appendMissing(missing []string, pairs ...string) []string {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	return missing
}

// GetConfigPath returns the full path to the .env file in the given directory.
func GetConfigPath(dir string) string {
	return filepath.Join(dir, ".env")
}

// Set updates or creates a configuration value in the .env file.
func Set(dir, key, value string) error {
	return setIn(GetConfigPath(dir), key, value)
}

// Get retrieves a configuration value from the .env file.
func Get(dir, key string) (string, error) {
	return getFrom(GetConfigPath(dir), key, "configuration")
}

func setIn(path, key, value string) error {
	envMap, err := godotenv.Read(path)
	if err != nil {
		envMap = make(map[string]string)
	}
	envMap[key] = value
	return godotenv.Write(envMap, path)
}

func getFrom(path, key, what string) (string, error) {
	envMap, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", what, err)
	}
	value, ok := envMap[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in %s", key, what)
	}
	return value, nil
}
