// Package config loads the mcp-library server configuration from
// built-in defaults, an optional YAML file, and LIBRARY_* environment
// variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the mcp-library server. It is resolved
// once in main and passed by value into constructors.
type Config struct {
	// BooksFile is the path of the persisted book collection.
	BooksFile string `yaml:"books_file"`

	// Host and Port form the listen address of the sse transport. The
	// stdio transport ignores both.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// EnableSearch gates the search_books tool and the search resource
	// template; EnableStats gates the get_statistics tool and the
	// books://stats resource.
	EnableSearch bool `yaml:"enable_search"`
	EnableStats  bool `yaml:"enable_stats"`

	MaxBooks int `yaml:"max_books"`

	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling; accepts plain seconds
	// ("300") or a Go duration ("5m").
	CacheTTLRaw string `yaml:"cache_ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BooksFile:    "books.json",
		Host:         "127.0.0.1",
		Port:         8000,
		LogLevel:     "info",
		LogFormat:    "text",
		EnableSearch: true,
		EnableStats:  true,
		MaxBooks:     10000,
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	}
}

// Load resolves the configuration. The file at path is optional and
// skipped when path is empty. Environment variables in the format
// ${VAR_NAME} are expanded in the file content before unmarshaling,
// and LIBRARY_* variables override the result field by field.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if cfg.CacheTTLRaw != "" {
		ttl, err := parseTTL(cfg.CacheTTLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("parsing cache_ttl %q: %w", cfg.CacheTTLRaw, err)
		}
		cfg.CacheTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(re.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("LIBRARY_BOOKS_FILE"); ok {
		c.BooksFile = v
	}
	if v, ok := os.LookupEnv("LIBRARY_HOST"); ok {
		c.Host = v
	}
	if v, ok := os.LookupEnv("LIBRARY_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing LIBRARY_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("LIBRARY_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("LIBRARY_LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := os.LookupEnv("LIBRARY_ENABLE_SEARCH"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing LIBRARY_ENABLE_SEARCH %q: %w", v, err)
		}
		c.EnableSearch = enabled
	}
	if v, ok := os.LookupEnv("LIBRARY_ENABLE_STATS"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing LIBRARY_ENABLE_STATS %q: %w", v, err)
		}
		c.EnableStats = enabled
	}
	if v, ok := os.LookupEnv("LIBRARY_MAX_BOOKS"); ok {
		maxBooks, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing LIBRARY_MAX_BOOKS %q: %w", v, err)
		}
		c.MaxBooks = maxBooks
	}
	if v, ok := os.LookupEnv("LIBRARY_CACHE_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing LIBRARY_CACHE_ENABLED %q: %w", v, err)
		}
		c.CacheEnabled = enabled
	}
	if v, ok := os.LookupEnv("LIBRARY_CACHE_TTL"); ok {
		c.CacheTTLRaw = v
	}

	return nil
}

// parseTTL accepts a bare integer as a second count or any string
// time.ParseDuration understands.
func parseTTL(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	return time.ParseDuration(raw)
}

// Validate checks that every field holds a usable value. Returns an
// error describing the first validation failure encountered.
func (c Config) Validate() error {
	if c.BooksFile == "" {
		return fmt.Errorf("books_file is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxBooks < 1 {
		return fmt.Errorf("max_books must be at least 1, got %d", c.MaxBooks)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}

	return nil
}
