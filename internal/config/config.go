package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to run the clinops CLI.
type Config struct {
	Clients ClientsConfig `yaml:"clients"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ClientsConfig groups integrations with clinops backends.
type ClientsConfig struct {
	Core CoreClientConfig `yaml:"core"`
}

// CoreClientConfig configures access to the clinops-core dashboard APIs.
type CoreClientConfig struct {
	BaseURL          string        `yaml:"baseURL"`
	APIPath          string        `yaml:"apiPath"`
	Timeout          time.Duration `yaml:"timeout"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
}

// CacheConfig controls in-memory caching of dashboard responses.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// HistoryConfig controls the local investigation history store.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig controls the live dashboard refresh loop.
type WatchConfig struct {
	Interval       time.Duration `yaml:"interval"`
	MetricsAddress string        `yaml:"metricsAddress"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CLINOPS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Clients: ClientsConfig{
			Core: CoreClientConfig{
				BaseURL:          "http://localhost:8000",
				Timeout:          15 * time.Second,
				HandshakeTimeout: 10 * time.Second,
			},
		},
		Cache:   CacheConfig{TTL: 2 * time.Minute},
		Logging: LoggingConfig{Level: "info", JSON: false},
		History: HistoryConfig{Path: defaultHistoryPath()},
		Watch:   WatchConfig{Interval: 30 * time.Second},
	}
}

// defaultHistoryPath keeps the investigation log under the user's home
// directory, falling back to the working directory when home is unknown.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".clinops", "history.db")
	}
	return filepath.Join(home, ".clinops", "history.db")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLINOPS_CORE_BASE_URL"); v != "" {
		cfg.Clients.Core.BaseURL = v
	}
	if v := os.Getenv("CLINOPS_CORE_API_PATH"); v != "" {
		cfg.Clients.Core.APIPath = v
	}
	if v := os.Getenv("CLINOPS_CORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.Core.Timeout = d
		}
	}
	if v := os.Getenv("CLINOPS_CORE_HANDSHAKE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.Core.HandshakeTimeout = d
		}
	}
	if v := os.Getenv("CLINOPS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("CLINOPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CLINOPS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CLINOPS_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("CLINOPS_WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Interval = d
		}
	}
	if v := os.Getenv("CLINOPS_METRICS_ADDRESS"); v != "" {
		cfg.Watch.MetricsAddress = v
	}
}
