package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config contains the program configuration
type Config struct {
	CatalogURL       string        `yaml:"catalog_url"`
	DefaultTerm      string        `yaml:"default_term"`
	TopLimit         int           `yaml:"top_limit"`
	SearchTimeout    time.Duration `yaml:"search_timeout"`
	CacheTopSongs    bool          `yaml:"cache_top_songs"`
	SupersedeStale   bool          `yaml:"supersede_stale"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	Cache            CacheConfig   `yaml:"cache"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
	Verbose          bool          `yaml:"verbose"`
	Addr             string        `yaml:"addr"`
}

// CacheConfig bounds the response cache tiers. Capacities count stored responses.
type CacheConfig struct {
	MemoryEntries int    `yaml:"memory_entries"`
	DiskEntries   int    `yaml:"disk_entries"`
	DiskPath      string `yaml:"disk_path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		CatalogURL:       "https://itunes.apple.com/search",
		DefaultTerm:      "deftones",
		TopLimit:         15,
		SearchTimeout:    30 * time.Second,
		ProgressInterval: time.Second,
		Cache: CacheConfig{
			MemoryEntries: 100,
			DiskEntries:   500,
			DiskPath:      filepath.Join(homeDir(), ".cache", "songpreview", "responses.db"),
		},
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":8080",
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Cache.DiskPath = ExpandHome(cfg.Cache.DiskPath)

	return cfg, nil
}

// Environment variables that override file values.
const (
	EnvCatalogURL  = "SONGPREVIEW_CATALOG_URL"
	EnvDefaultTerm = "SONGPREVIEW_DEFAULT_TERM"
	EnvTopLimit    = "SONGPREVIEW_TOP_LIMIT"
	EnvAddr        = "SONGPREVIEW_ADDR"
	EnvLogLevel    = "SONGPREVIEW_LOG_LEVEL"
	EnvCachePath   = "SONGPREVIEW_CACHE_PATH"
)

// LoadEnv reads a .env file from the working directory when one exists and
// applies SONGPREVIEW_* overrides on top of cfg.
func LoadEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return ApplyEnv(cfg)
}

// ApplyEnv overrides cfg with any SONGPREVIEW_* variables set in the environment.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvCatalogURL); v != "" {
		cfg.CatalogURL = v
	}
	if v := os.Getenv(EnvDefaultTerm); v != "" {
		cfg.DefaultTerm = v
	}
	if v := os.Getenv(EnvTopLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvTopLimit, v, err)
		}
		cfg.TopLimit = n
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvCachePath); ok {
		// An explicitly empty value turns the disk tier off.
		cfg.Cache.DiskPath = ExpandHome(v)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./songpreview.yaml",
		"./songpreview.yml",
		filepath.Join(home, ".config", "songpreview", "config.yaml"),
		filepath.Join(home, ".config", "songpreview", "config.yml"),
		filepath.Join(home, ".songpreview.yaml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "songpreview", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "songpreview", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.CatalogURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog_url must be an absolute http(s) URL, got %q", c.CatalogURL)
	}

	if strings.TrimSpace(c.DefaultTerm) == "" {
		return fmt.Errorf("default_term cannot be empty")
	}

	if c.TopLimit < 1 || c.TopLimit > 200 {
		return fmt.Errorf("top_limit must be between 1 and 200, got %d", c.TopLimit)
	}

	if c.SearchTimeout <= 0 {
		return fmt.Errorf("search_timeout must be positive, got %s", c.SearchTimeout)
	}

	if c.ProgressInterval < 100*time.Millisecond {
		return fmt.Errorf("progress_interval must be at least 100ms, got %s", c.ProgressInterval)
	}

	if c.Cache.MemoryEntries < 1 {
		return fmt.Errorf("cache.memory_entries must be at least 1, got %d", c.Cache.MemoryEntries)
	}
	if c.Cache.DiskPath != "" && c.Cache.DiskEntries < 1 {
		return fmt.Errorf("cache.disk_entries must be at least 1 when disk_path is set, got %d", c.Cache.DiskEntries)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format '%s', valid formats: text, json", c.LogFormat)
	}

	return nil
}
