// Package config loads condascan settings from defaults, an optional YAML
// config file and CONDASCAN_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/frederic-klein/condascan/internal/cache"
)

const (
	// AppName is the application name.
	AppName = "condascan"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. CONDASCAN_CACHE_BACKEND.
	EnvPrefix = "CONDASCAN"
)

// Config is the resolved configuration.
type Config struct {
	CondaBin string      `mapstructure:"conda_bin"`
	Workers  int         `mapstructure:"workers"`
	LogLevel string      `mapstructure:"log_level"`
	Output   string      `mapstructure:"output"`
	Cache    CacheConfig `mapstructure:"cache"`
}

// CacheConfig selects and configures the persistent listing cache.
type CacheConfig struct {
	Backend     string        `mapstructure:"backend"`
	Dir         string        `mapstructure:"dir"`
	TTL         time.Duration `mapstructure:"ttl"`
	RedisURL    string        `mapstructure:"redis_url"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	dir, err := CacheDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), AppName)
	}
	return &Config{
		CondaBin: "conda",
		Workers:  4,
		LogLevel: "info",
		Output:   "text",
		Cache: CacheConfig{
			Backend:     cache.BackendFile,
			Dir:         dir,
			TTL:         24 * time.Hour,
			RedisPrefix: cache.DefaultRedisPrefix,
		},
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/condascan, falling back to
// ~/.config/condascan.
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}

// CacheDir returns $XDG_CACHE_HOME/condascan, falling back to
// ~/.cache/condascan.
func CacheDir() (string, error) {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, AppName), nil
}

// LoadOptions tells Load where to look for a config file.
type LoadOptions struct {
	// ConfigFilePath, when set, is the only file read and must exist.
	ConfigFilePath string
	// ConfigDirPath overrides ConfigDir.
	ConfigDirPath string
}

// Load resolves the configuration. It returns the path of the config file
// read, or "" when only defaults and the environment applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("conda_bin", defaults.CondaBin)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("cache.backend", defaults.Cache.Backend)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("cache.ttl", defaults.Cache.TTL)
	v.SetDefault("cache.redis_url", defaults.Cache.RedisURL)
	v.SetDefault("cache.redis_prefix", defaults.Cache.RedisPrefix)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			dir, err := ConfigDir()
			if err != nil {
				return nil, "", err
			}
			cfgDir = dir
		}
		path := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(path) {
			resolvedPath = path
		}
	}

	if resolvedPath != "" {
		v.SetConfigFile(resolvedPath)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("reading config %s: %w", resolvedPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if resolvedPath != "" {
			return nil, "", fmt.Errorf("%s: %w", resolvedPath, err)
		}
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.Output {
	case "text", "yaml", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be text, yaml or json, got %q", c.Output))
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendSQLite, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be file, sqlite, redis or none, got %q", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL))
	}
	return errors.Join(errs...)
}

// CacheOptions converts the cache settings for cache.Open.
func (c *Config) CacheOptions(logger *log.Logger) cache.Options {
	return cache.Options{
		Backend:     c.Cache.Backend,
		Dir:         c.Cache.Dir,
		TTL:         c.Cache.TTL,
		RedisURL:    c.Cache.RedisURL,
		RedisPrefix: c.Cache.RedisPrefix,
		Logger:      logger,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
