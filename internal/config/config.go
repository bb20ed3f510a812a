// Package config loads the engine's settings from an optional YAML file and
// TODO_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

// Storage backend names.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// ErrUnknownBackend is returned when storage.backend names no known backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Storage selects and locates the durable key-value store.
type Storage struct {
	// Backend is one of "json", "sqlite", "postgres" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Dir is the data directory. JSONPath and SQLitePath must resolve inside it.
	Dir string `mapstructure:"dir" yaml:"dir"`

	JSONPath   string `mapstructure:"json_path" yaml:"json_path"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	PostgresURL string `mapstructure:"postgres_url" yaml:"postgres_url"`

	// PostgresPasswordKey names a keyring entry holding the Postgres password.
	// When set, it replaces any password in PostgresURL.
	PostgresPasswordKey string `mapstructure:"postgres_password_key" yaml:"postgres_password_key"`

	// KeyPrefix is prepended to the persisted keys.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// QuotaBytes caps the total size of stored values; 0 disables the cap.
	QuotaBytes int `mapstructure:"quota_bytes" yaml:"quota_bytes"`
}

// Engine tunes the reactive query engine.
type Engine struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Retention controls how the repository frees space when storage is full.
type Retention struct {
	PruneThreshold int `mapstructure:"prune_threshold" yaml:"prune_threshold"`
	PruneKeep      int `mapstructure:"prune_keep" yaml:"prune_keep"`
}

// Config is the top-level configuration.
type Config struct {
	Storage    Storage   `mapstructure:"storage" yaml:"storage"`
	Engine     Engine    `mapstructure:"engine" yaml:"engine"`
	Retention  Retention `mapstructure:"retention" yaml:"retention"`
	Categories []string  `mapstructure:"categories" yaml:"categories"`
	LogLevel   string    `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns ~/.config/todo-engine/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todo-engine", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendJSON)
	v.SetDefault("storage.dir", filepath.Join("~", ".local", "share", "todo-engine"))
	v.SetDefault("storage.json_path", "todos.json")
	v.SetDefault("storage.sqlite_path", "todos.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.postgres_password_key", "")
	v.SetDefault("storage.key_prefix", "enterprise-")
	v.SetDefault("storage.quota_bytes", 0)
	v.SetDefault("engine.debounce", 300*time.Millisecond)
	v.SetDefault("retention.prune_threshold", 50)
	v.SetDefault("retention.prune_keep", 50)
	v.SetDefault("categories", todo.DefaultCategories)
	v.SetDefault("log_level", "info")
}

// Load reads configuration from the YAML file at path, then applies TODO_*
// environment overrides (TODO_STORAGE_BACKEND, TODO_ENGINE_DEBOUNCE, ...).
//
// A missing file is not an error; defaults and the environment still apply.
// An empty path uses DefaultConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot coerce.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("%w: %q (expected json, sqlite, postgres or memory)", ErrUnknownBackend, c.Storage.Backend)
	}
	if c.Storage.Backend == BackendPostgres && strings.TrimSpace(c.Storage.PostgresURL) == "" {
		return errors.New("storage.postgres_url is required for the postgres backend")
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative, got %d", c.Storage.QuotaBytes)
	}
	if c.Engine.Debounce < 0 {
		return fmt.Errorf("engine.debounce must not be negative, got %s", c.Engine.Debounce)
	}
	if c.Retention.PruneKeep <= 0 {
		return fmt.Errorf("retention.prune_keep must be positive, got %d", c.Retention.PruneKeep)
	}
	if c.Retention.PruneThreshold < 0 {
		return fmt.Errorf("retention.prune_threshold must not be negative, got %d", c.Retention.PruneThreshold)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a log_level value to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q (expected debug, info, warn or error)", s)
	}
}

// NewLogger builds the text logger every host writes to. verbose forces the
// debug level regardless of LogLevel.
func (c *Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
