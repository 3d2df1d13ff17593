package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}

	if cfg.BooksFile != "books.json" {
		t.Errorf("expected books file %q, got %q", "books.json", cfg.BooksFile)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("expected host %q, got %q", "127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level %q, got %q", "info", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("expected log format %q, got %q", "text", cfg.LogFormat)
	}
	if !cfg.EnableSearch || !cfg.EnableStats {
		t.Errorf("expected both features enabled, got search=%t stats=%t", cfg.EnableSearch, cfg.EnableStats)
	}
	if cfg.MaxBooks != 10000 {
		t.Errorf("expected max books 10000, got %d", cfg.MaxBooks)
	}
	if !cfg.CacheEnabled {
		t.Error("expected cache enabled")
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected cache ttl 5m, got %s", cfg.CacheTTL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
books_file: "/var/lib/library/books.json"
port: 9000
log_level: "debug"
enable_search: false
cache_ttl: "30s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.BooksFile != "/var/lib/library/books.json" {
		t.Errorf("expected books file from file, got %q", cfg.BooksFile)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level %q, got %q", "debug", cfg.LogLevel)
	}
	if cfg.EnableSearch {
		t.Error("expected search disabled")
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %s", cfg.CacheTTL)
	}

	// Omitted keys keep their defaults.
	if cfg.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %q", cfg.Host)
	}
	if !cfg.EnableStats {
		t.Error("expected stats to keep its default")
	}
}

func TestLoadEnvVarExpansion(t *testing.T) {
	t.Setenv("LIBRARY_TEST_DATA_DIR", "/srv/library")

	path := writeConfigFile(t, `
books_file: "${LIBRARY_TEST_DATA_DIR}/books.json"
host: "${LIBRARY_TEST_UNSET_HOST}127.0.0.1"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.BooksFile != "/srv/library/books.json" {
		t.Errorf("expected expanded books file, got %q", cfg.BooksFile)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("expected unset variable to expand to nothing, got %q", cfg.Host)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LIBRARY_PORT", "9001")
	t.Setenv("LIBRARY_ENABLE_STATS", "false")
	t.Setenv("LIBRARY_CACHE_TTL", "120")

	path := writeConfigFile(t, `
port: 9999
cache_ttl: "1h"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Port != 9001 {
		t.Errorf("expected environment to win over file, got port %d", cfg.Port)
	}
	if cfg.EnableStats {
		t.Error("expected stats disabled from environment")
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("expected cache ttl 2m, got %s", cfg.CacheTTL)
	}
}

func TestLoadBadEnvValue(t *testing.T) {
	t.Setenv("LIBRARY_PORT", "not-a-port")

	if _, err := Load(""); err == nil {
		t.Error("expected error for unparsable LIBRARY_PORT")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "300", want: 5 * time.Minute},
		{raw: "0", want: 0},
		{raw: "45s", want: 45 * time.Second},
		{raw: "1h30m", want: 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseTTL(tt.raw)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := parseTTL("soon"); err == nil {
		t.Error("expected error for unparsable ttl")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty books file",
			mutate:  func(c *Config) { c.BooksFile = "" },
			wantErr: "books_file",
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "port",
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "max books zero",
			mutate:  func(c *Config) { c.MaxBooks = 0 },
			wantErr: "max_books",
		},
		{
			name:    "negative ttl",
			mutate:  func(c *Config) { c.CacheTTL = -time.Second },
			wantErr: "cache_ttl",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "log_level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "log_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error naming %q, got %v", tt.wantErr, err)
			}
		})
	}
}
