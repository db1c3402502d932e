package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/facesync/internal/shared"
	tu "github.com/desertthunder/facesync/internal/testing"
	"github.com/desertthunder/facesync/internal/worker"
	"github.com/urfave/cli/v3"
)

// testApp wraps the runner's commands in an app for end-to-end invocation.
func testApp(r *Runner) *cli.Command {
	return &cli.Command{Name: "facesync", Commands: r.register()}
}

// testConfig returns a config whose database lives in a temp directory.
func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "facesync.db")
	return config
}

// sealedProvider builds a fake provider whose content is secretbox-sealed
// with the per-file zero keys, so the real crypto worker can open it.
func sealedProvider(t *testing.T, n int) *tu.FakeProvider {
	t.Helper()
	provider := tu.NewFakeProvider(n)
	var nonce [24]byte
	for id, plain := range provider.Content {
		copy(nonce[:], id)
		sealed, err := worker.Seal(plain, provider.Keys[id], nonce)
		if err != nil {
			t.Fatalf("failed to seal content for %s: %v", id, err)
		}
		provider.Content[id] = sealed
	}
	return provider
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			provider := tu.NewFakeProvider(0)

			runner := NewRunner(RunnerOpts{
				Config:   config,
				Provider: provider,
				Logger:   logger,
				Output:   output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.provider != provider {
				t.Error("expected provider to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil provider builds remote client lazily", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.fileProvider(runner.config) == nil {
				t.Error("expected a remote client when no provider is injected")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Fatal("expected error for non-serializable data")
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}
	})
}

func TestSetupCommand(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	dbPath := filepath.Join(tmpDir, "facesync.db")

	configBody := "[database]\npath = \"" + dbPath + "\"\n"
	if err := os.WriteFile(configPath, []byte(configBody), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output})

	err := testApp(runner).Run(context.Background(), []string{"facesync", "setup", "--config", configPath})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if !strings.Contains(output.String(), "Database ready") {
		t.Errorf("expected setup confirmation, got %q", output.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file should exist: %v", err)
	}
}

func TestSyncCommand(t *testing.T) {
	config := testConfig(t)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Provider: sealedProvider(t, 3),
		Output:   output,
	})

	err := testApp(runner).Run(context.Background(),
		[]string{"facesync", "sync", "--json", "--concurrency", "2"})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	var report struct {
		TotalFiles  int    `json:"total_files"`
		SyncedFiles int    `json:"synced_files"`
		FatalError  string `json:"fatal_error"`
	}
	if err := json.Unmarshal(output.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, output.String())
	}

	if report.TotalFiles != 3 {
		t.Errorf("expected 3 total files, got %d", report.TotalFiles)
	}
	if report.SyncedFiles != 3 {
		t.Errorf("expected 3 synced files, got %d", report.SyncedFiles)
	}
	if report.FatalError != "" {
		t.Errorf("unexpected fatal error: %s", report.FatalError)
	}
}

func TestStatusCommand(t *testing.T) {
	config := testConfig(t)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Provider: sealedProvider(t, 0),
		Output:   output,
	})

	// Sync once so the database exists with the schema applied.
	if err := testApp(runner).Run(context.Background(), []string{"facesync", "sync"}); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	output.Reset()

	if err := testApp(runner).Run(context.Background(), []string{"facesync", "status"}); err != nil {
		t.Fatalf("status failed: %v", err)
	}

	if !strings.Contains(output.String(), "ML library version: 0") {
		t.Errorf("expected version 0 in status output, got %q", output.String())
	}
	if !strings.Contains(output.String(), "Stored faces:") {
		t.Errorf("expected face count in status output, got %q", output.String())
	}
}

func TestClustersCommand(t *testing.T) {
	config := testConfig(t)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Provider: sealedProvider(t, 2),
		Output:   output,
	})

	if err := testApp(runner).Run(context.Background(), []string{"facesync", "sync"}); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	output.Reset()

	if err := testApp(runner).Run(context.Background(), []string{"facesync", "clusters"}); err != nil {
		t.Fatalf("clusters failed: %v", err)
	}

	if !strings.Contains(output.String(), "Clusters:") {
		t.Errorf("expected cluster summary, got %q", output.String())
	}
}
