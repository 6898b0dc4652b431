package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseMergesOverDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
evaluation:
  course: Biology
  maxConcurrency: 3
retry:
  maxRetries: 2
database:
  driver: sqlite3
  dsn: file:results.db
`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if cfg.Evaluation.Course != "Biology" || cfg.Evaluation.MaxConcurrency != 3 {
		t.Fatalf("unexpected evaluation config: %+v", cfg.Evaluation)
	}
	if cfg.Retry.MaxRetries != 2 {
		t.Fatalf("expected 2 retries, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.InitialIntervalMs != 500 {
		t.Fatalf("expected default initial interval, got %d", cfg.Retry.InitialIntervalMs)
	}
	if cfg.Database.Driver != "sqlite3" || cfg.Database.DSN != "file:results.db" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Anthropic.MaxTokens != 8192 || cfg.Anthropic.Temperature != 0.6 {
		t.Fatalf("model parameters changed: %+v", cfg.Anthropic)
	}
}

func TestDefaultsKeepRetriesDisabled(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.Retry.MaxRetries != 0 {
		t.Fatalf("retries must be opt-in, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Evaluation.MaxConcurrency != 7 {
		t.Fatalf("expected concurrency ceiling 7, got %d", cfg.Evaluation.MaxConcurrency)
	}
	if cfg.Anthropic.Timeout() != 0 {
		t.Fatalf("expected transport default timeout, got %s", cfg.Anthropic.Timeout())
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(logLevelEnv, "")
	t.Setenv(databaseDriverEnv, "")
	t.Setenv(anthropicModelEnv, "claude-test")
	t.Setenv(databaseDSNEnv, "postgres://localhost/evals")

	cfg := Load()
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected level from file, got %q", cfg.Logging.Level)
	}
	if cfg.Anthropic.Model != "claude-test" {
		t.Fatalf("expected model override, got %q", cfg.Anthropic.Model)
	}
	if cfg.Database.DSN != "postgres://localhost/evals" || cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
}
