// Package config provides configuration loading and structs for the osusume server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables that override file settings.
const EnvPrefix = "OSUSUME_"

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Metadata MetadataConfig `yaml:"metadata"`
	Suggest  SuggestConfig  `yaml:"suggest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the catalog database and the vector file.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	VectorPath   string `yaml:"vector_path"`
	Watch        bool   `yaml:"watch"` // reload the catalog when the vector file is replaced
}

// RankingConfig holds recommendation limits and similarity scan sharding.
type RankingConfig struct {
	DefaultTopN   int `yaml:"default_top_n"`
	MaxTopN       int `yaml:"max_top_n"`
	Parallelism   int `yaml:"parallelism"`     // 0 means GOMAXPROCS
	ShardMinItems int `yaml:"shard_min_items"` // smallest shard scanned on its own goroutine
}

// MetadataConfig holds settings for the remote anime metadata API.
type MetadataConfig struct {
	Enabled           *bool   `yaml:"enabled"`
	BaseURL           string  `yaml:"base_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	CacheSize         int     `yaml:"cache_size"`
	Concurrency       int     `yaml:"concurrency"`
	SynopsisLength    int     `yaml:"synopsis_length"`
}

// EnabledOrDefault returns whether metadata is fetched; defaults to true when unset.
func (m *MetadataConfig) EnabledOrDefault() bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return true
}

// SuggestConfig holds "did you mean" settings.
type SuggestConfig struct {
	Enabled        *bool `yaml:"enabled"`
	MaxSuggestions int   `yaml:"max_suggestions"`
	Fuzziness      int   `yaml:"fuzziness"`
}

// EnabledOrDefault returns whether suggestions are offered; defaults to true when unset.
func (s *SuggestConfig) EnabledOrDefault() bool {
	if s.Enabled != nil {
		return *s.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorPath = expandPath(cfg.Storage.VectorPath, configDir)

	return &cfg, nil
}

// ApplyEnv overrides cfg from OSUSUME_* variables returned by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("SERVER_HOST", &cfg.Server.Host)
	str("DATABASE_PATH", &cfg.Storage.DatabasePath)
	str("VECTOR_PATH", &cfg.Storage.VectorPath)
	str("METADATA_BASE_URL", &cfg.Metadata.BaseURL)

	if v, ok := lookup(EnvPrefix + "SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_PORT %q: %w", EnvPrefix, v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvPrefix + "DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEBUG %q: %w", EnvPrefix, v, err)
		}
		cfg.Debug = debug
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
