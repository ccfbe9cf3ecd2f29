package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ATOMIZE_BASE_URL", "POLL_BASE_INTERVAL_MS", "POLL_MAX_INTERVAL_MS", "ATOMIZE_MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.BaseURL != "http://localhost:8000" {
		t.Fatalf("expected default base url, got %q", cfg.BaseURL)
	}
	if cfg.PollBaseInterval != time.Second {
		t.Fatalf("expected 1s base interval, got %s", cfg.PollBaseInterval)
	}
	if cfg.PollMaxInterval != 5*time.Second {
		t.Fatalf("expected 5s max interval, got %s", cfg.PollMaxInterval)
	}
	if cfg.MaxUploadBytes() != 1024*1024*1024 {
		t.Fatalf("expected 1GiB upload cap, got %d", cfg.MaxUploadBytes())
	}
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	t.Setenv("ATOMIZE_BASE_URL", "https://jobs.example.com/")
	t.Setenv("POLL_BASE_INTERVAL_MS", "250")
	t.Setenv("POLL_MAX_INTERVAL_MS", "not-a-number")

	cfg := Load()
	if cfg.BaseURL != "https://jobs.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
	if cfg.PollBaseInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms base interval, got %s", cfg.PollBaseInterval)
	}
	if cfg.PollMaxInterval != 5*time.Second {
		t.Fatalf("expected fallback max interval, got %s", cfg.PollMaxInterval)
	}
}

func TestLoadDotEnvKeepsProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "ATOMIZE_TEST_FROM_FILE=file\nATOMIZE_TEST_PRESET=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ATOMIZE_TEST_PRESET", "process")
	t.Cleanup(func() { _ = os.Unsetenv("ATOMIZE_TEST_FROM_FILE") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("expected missing files to be skipped, got %v", err)
	}
	if got := os.Getenv("ATOMIZE_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("ATOMIZE_TEST_PRESET"); got != "process" {
		t.Fatalf("expected process env to win, got %q", got)
	}
}
