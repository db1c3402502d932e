package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "facesync.db" {
			t.Errorf("expected database path facesync.db, got %s", config.Database.Path)
		}

		if config.Remote.BaseURL != "http://localhost:8080" {
			t.Errorf("expected remote base URL http://localhost:8080, got %s", config.Remote.BaseURL)
		}

		if config.ML.Detection != "blazeface" {
			t.Errorf("expected detection blazeface, got %s", config.ML.Detection)
		}

		if config.ML.Concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", config.ML.Concurrency)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[remote]
base_url = "https://photos.example.com"
token = "test_token"
rate_limit = 2.5

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[ml]
detection = "yolo"
crop = "padded"
alignment = "none"
embedding = "arcface"
clustering = "agglomerative"
concurrency = 8
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Remote.BaseURL != "https://photos.example.com" {
			t.Errorf("expected remote base URL https://photos.example.com, got %s", config.Remote.BaseURL)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.ML.Embedding != "arcface" {
			t.Errorf("expected embedding arcface, got %s", config.ML.Embedding)
		}

		if config.ML.Concurrency != 8 {
			t.Errorf("expected concurrency 8, got %d", config.ML.Concurrency)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("loading a missing config file should fail")
		}
	})
}
