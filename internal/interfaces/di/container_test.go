package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// newTestContainer builds a container isolated from the developer's real
// environment and config file
func newTestContainer(t *testing.T) *Container {
	t.Helper()

	t.Setenv("DIFYMIRROR_CONFIG_FILE", filepath.Join(t.TempDir(), "config.json"))
	for _, name := range []string{
		"DIFYMIRROR_BASE_URL", "DIFYMIRROR_OUTPUT_DIR", "DIFYMIRROR_CATEGORIES",
		"DIFYMIRROR_PAGE_SIZE", "DIFYMIRROR_CONCURRENCY", "DIFYMIRROR_JITTER_MIN",
		"DIFYMIRROR_JITTER_MAX", "DIFYMIRROR_TIMEOUT", "DIFYMIRROR_DEBUG",
	} {
		t.Setenv(name, "")
	}

	container, err := NewContainer()
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	return container
}

func TestNewContainerDefaults(t *testing.T) {
	container := newTestContainer(t)

	if container.Config.BaseURL != "https://marketplace.dify.ai" {
		t.Errorf("BaseURL = %v, want the marketplace default", container.Config.BaseURL)
	}
	if container.SyncService == nil || container.CollectionsService == nil {
		t.Error("services not wired")
	}
	if container.CLIContainer.SyncService != container.SyncService {
		t.Error("CLI container does not share the sync service")
	}
	if err := container.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() unexpected error: %v", err)
	}
}

func TestApplyBaseURLOverride(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		expectError bool
	}{
		{
			name:        "valid URL override",
			baseURL:     "http://localhost:5149",
			expectError: false,
		},
		{
			name:        "empty URL should fail",
			baseURL:     "",
			expectError: true,
		},
		{
			name:        "HTTPS URL override",
			baseURL:     "https://marketplace.staging.dify.ai",
			expectError: false,
		},
		{
			name:        "relative URL should fail",
			baseURL:     "not-a-url",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := newTestContainer(t)

			err := container.ApplyBaseURLOverride(tt.baseURL)

			if tt.expectError && err == nil {
				t.Errorf("ApplyBaseURLOverride() expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("ApplyBaseURLOverride() unexpected error: %v", err)
			}

			if !tt.expectError {
				if container.Config.BaseURL != tt.baseURL {
					t.Errorf("Config.BaseURL = %v, want %v", container.Config.BaseURL, tt.baseURL)
				}
				if container.CLIContainer.Config.BaseURL != tt.baseURL {
					t.Errorf("CLI container config not rebuilt after override")
				}
			}
		})
	}
}

func TestApplyConcurrencyOverride(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		expectError bool
	}{
		{name: "raise ceiling", concurrency: 10, expectError: false},
		{name: "serial downloads", concurrency: 1, expectError: false},
		{name: "zero should fail", concurrency: 0, expectError: true},
		{name: "negative should fail", concurrency: -3, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := newTestContainer(t)

			err := container.ApplyConcurrencyOverride(tt.concurrency)

			if tt.expectError && err == nil {
				t.Errorf("ApplyConcurrencyOverride() expected error but got none")
			}
			if !tt.expectError {
				if err != nil {
					t.Errorf("ApplyConcurrencyOverride() unexpected error: %v", err)
				}
				if container.Config.DownloadConcurrency != tt.concurrency {
					t.Errorf("DownloadConcurrency = %v, want %v", container.Config.DownloadConcurrency, tt.concurrency)
				}
			}
		})
	}
}

func TestApplyTimeoutOverride(t *testing.T) {
	container := newTestContainer(t)

	if err := container.ApplyTimeoutOverride(30); err != nil {
		t.Errorf("ApplyTimeoutOverride(30) unexpected error: %v", err)
	}
	if container.Config.RequestTimeout != 30 {
		t.Errorf("RequestTimeout = %v, want 30", container.Config.RequestTimeout)
	}

	if err := container.ApplyTimeoutOverride(0); err == nil {
		t.Error("ApplyTimeoutOverride(0) expected error but got none")
	}
}

func TestApplyOutputDirOverride(t *testing.T) {
	container := newTestContainer(t)
	dir := t.TempDir()

	if err := container.ApplyOutputDirOverride(dir); err != nil {
		t.Errorf("ApplyOutputDirOverride() unexpected error: %v", err)
	}
	if container.Config.OutputDir != dir {
		t.Errorf("OutputDir = %v, want %v", container.Config.OutputDir, dir)
	}

	if err := container.ApplyOutputDirOverride(""); err == nil {
		t.Error("ApplyOutputDirOverride(\"\") expected error but got none")
	}
}

func TestApplyDebugOverride(t *testing.T) {
	container := newTestContainer(t)

	if container.Logger.GetLogLevel() == ports.LogLevelDebug {
		t.Fatal("debug level already active before override")
	}

	if err := container.ApplyDebugOverride(); err != nil {
		t.Fatalf("ApplyDebugOverride() unexpected error: %v", err)
	}
	if container.Logger.GetLogLevel() != ports.LogLevelDebug {
		t.Error("logger level not raised to debug")
	}
}

func TestApplyConfigPathOverride(t *testing.T) {
	container := newTestContainer(t)

	path := filepath.Join(t.TempDir(), "override.json")
	content := `{"base_url": "https://mirror.example.com", "output_dir": "/tmp/mirror"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if err := container.ApplyConfigPathOverride(path); err != nil {
		t.Fatalf("ApplyConfigPathOverride() unexpected error: %v", err)
	}

	if container.Config.BaseURL != "https://mirror.example.com" {
		t.Errorf("BaseURL = %v, want the file's value", container.Config.BaseURL)
	}
	if container.ConfigRepo.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %v, want %v", container.ConfigRepo.GetConfigPath(), path)
	}

	if err := container.ApplyConfigPathOverride(""); err == nil {
		t.Error("ApplyConfigPathOverride(\"\") expected error but got none")
	}
}

func TestGetVersion(t *testing.T) {
	container := newTestContainer(t)

	version := container.GetVersion()
	if version["version"] == "" {
		t.Error("version entry missing")
	}
	if version["build_time"] == "" {
		t.Error("build_time entry missing")
	}
}
