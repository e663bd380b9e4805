package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Search.MaxSnippets != 3 || cfg.Search.SnippetMaxChars != 150 {
		t.Fatalf("unexpected search defaults: %+v", cfg.Search)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("expected two default origins, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	yamlBody := `
server:
  port: 9100
  writeTimeout: 5s
search:
  maxSnippets: 1
  snippetMaxChars: 80
redis:
  enabled: true
  cacheTTL: 2m
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TS_LOGGING_LEVEL", "debug")
	t.Setenv("TS_DATASET_DIR", "/data/pdfs")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("port: got %d", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 5*time.Second {
		t.Fatalf("writeTimeout: got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Search.MaxSnippets != 1 || cfg.Search.SnippetMaxChars != 80 {
		t.Fatalf("search: got %+v", cfg.Search)
	}
	if !cfg.Redis.Enabled || cfg.Redis.CacheTTL != 2*time.Minute {
		t.Fatalf("redis: got %+v", cfg.Redis)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("env override for logging level not applied: %q", cfg.Logging.Level)
	}
	if !cfg.Dataset.Enabled || cfg.Dataset.Dir != "/data/pdfs" {
		t.Fatalf("dataset override not applied: %+v", cfg.Dataset)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"snippetMaxChars":  "search:\n  snippetMaxChars: 0\n",
		"rateLimit":        "server:\n  rateLimit: -1\n",
		"snapshotInterval": "postgres:\n  snapshotInterval: 0s\n",
		"no postgres use":  "postgres:\n  enabled: true\n  table: \"\"\n  snapshotTable: \"\"\n",
		"logLevel":         "logging:\n  level: verbose\n",
		"logFormat":        "logging:\n  format: xml\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=d sslmode=disable"
	if got := p.DSN(); got != want {
		t.Fatalf("DSN: got %q want %q", got, want)
	}
}

func TestRequestTimeoutEndsBeforeWriteDeadline(t *testing.T) {
	tests := []struct {
		write time.Duration
		want  time.Duration
	}{
		{0, 0},
		{5 * time.Second, 4500 * time.Millisecond},
		{60 * time.Second, 55 * time.Second},
		{10 * time.Millisecond, 9 * time.Millisecond},
	}
	for _, tt := range tests {
		got := ServerConfig{WriteTimeout: tt.write}.RequestTimeout()
		if got != tt.want {
			t.Errorf("RequestTimeout(write=%v) = %v, want %v", tt.write, got, tt.want)
		}
		if tt.write > 0 && (got <= 0 || got >= tt.write) {
			t.Errorf("RequestTimeout(write=%v) = %v, not inside (0, write)", tt.write, got)
		}
	}
}
