package config

import (
	"os"
	"path/filepath"
	"testing"
)

func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range Keys {
		t.Setenv(k.Name, "")
	}
	return home
}

func TestGetGlobalConfigDir(t *testing.T) {
	home := tempHome(t)

	expected := filepath.Join(home, ".trailmap")
	if dir := GetGlobalConfigDir(); dir != expected {
		t.Errorf("expected %s, got %s", expected, dir)
	}
}

func TestEnsureGlobalConfigDir(t *testing.T) {
	home := tempHome(t)

	if err := EnsureGlobalConfigDir(); err != nil {
		t.Fatalf("failed to ensure global config dir: %v", err)
	}

	expectedDir := filepath.Join(home, ".trailmap")
	if _, err := os.Stat(expectedDir); os.IsNotExist(err) {
		t.Errorf("global config directory was not created at %s", expectedDir)
	}
}

func TestLoadGlobalConfig_WithValidFile(t *testing.T) {
	home := tempHome(t)

	configDir := filepath.Join(home, ".trailmap")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	content := `TRAILMAP_STORE=neo4j
NEO4J_URI=neo4j://test:7687
NEO4J_PASSWORD=testpass
`
	if err := os.WriteFile(filepath.Join(configDir, "config"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("failed to load global config: %v", err)
	}
	if cfg.Neo4jURI != "neo4j://test:7687" || cfg.Neo4jPassword != "testpass" {
		t.Errorf("unexpected neo4j settings %+v", cfg)
	}
	if cfg.Neo4jUsername != "neo4j" {
		t.Errorf("expected default username, got %s", cfg.Neo4jUsername)
	}
}

func TestLoadGlobalConfig_InvalidStillReturnsConfig(t *testing.T) {
	tempHome(t)
	t.Setenv("TRAILMAP_STORE", "neo4j")

	cfg, err := LoadGlobalConfig()
	if err == nil {
		t.Error("expected error for missing password, got nil")
	}
	if cfg == nil {
		t.Error("expected config struct even with error, got nil")
	}
}

func TestSetAndGetGlobalConfig(t *testing.T) {
	tempHome(t)

	if err := SetGlobalConfig("GEMINI_API_KEY", "secret"); err != nil {
		t.Fatalf("failed to set global config: %v", err)
	}
	value, err := GetGlobalConfig("GEMINI_API_KEY")
	if err != nil {
		t.Fatalf("failed to get global config: %v", err)
	}
	if value != "secret" {
		t.Errorf("expected secret, got %s", value)
	}

	if _, err := GetGlobalConfig("DOES_NOT_EXIST"); err == nil {
		t.Error("expected error for non-existent key, got nil")
	}
}

func TestLoadWithGlobalFallback(t *testing.T) {
	tempHome(t)

	if err := SetGlobalConfig("POSTGRES_PASSWORD", "globalpass"); err != nil {
		t.Fatalf("failed to set global config: %v", err)
	}
	if err := SetGlobalConfig("POSTGRES_HOST", "global-db"); err != nil {
		t.Fatalf("failed to set global config: %v", err)
	}

	localDir := t.TempDir()
	localContent := "TRAILMAP_STORE=postgres\nPOSTGRES_HOST=local-db\n"
	if err := os.WriteFile(filepath.Join(localDir, ".env"), []byte(localContent), 0644); err != nil {
		t.Fatalf("failed to write local config: %v", err)
	}

	cfg, err := Load(localDir)
	if err != nil {
		t.Fatalf("failed to load config with global fallback: %v", err)
	}
	if cfg.PostgresHost != "local-db" {
		t.Errorf("expected local host, got %s", cfg.PostgresHost)
	}
	if cfg.PostgresPassword != "globalpass" {
		t.Errorf("expected global password, got %s", cfg.PostgresPassword)
	}
}

func TestAppendMissing(t *testing.T) {
	got := appendMissing(nil, "A", "x", "B", "", "C", "")
	if len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Errorf("appendMissing = %v", got)
	}
}
