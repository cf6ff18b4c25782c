// Package config loads runtime settings from IMPLICIT_OAUTH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-training/implicit-oauth/pkg/core"
	"github.com/go-training/implicit-oauth/pkg/store"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "IMPLICIT_OAUTH_"

// Config holds all runtime settings.
type Config struct {
	OAuth core.Configuration
	Store StoreConfig `envPrefix:"STORE_"`

	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	CallbackTimeout time.Duration `env:"CALLBACK_TIMEOUT" envDefault:"5m"`
	ListenAddr      string        `env:"LISTEN_ADDR"`
}

// StoreConfig selects and configures the token store backend.
type StoreConfig struct {
	Type          string `env:"TYPE"           envDefault:"file"`
	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
	FilePath      string `env:"FILE_PATH"`
	SQLitePath    string `env:"SQLITE_PATH"`
	// EncryptionKey is a base64 encoded 32 byte key. Empty disables sealing.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c *Config) Validate() error {
	if !store.StoreType(strings.ToLower(c.Store.Type)).IsValid() {
		return fmt.Errorf("unsupported store type %q", c.Store.Type)
	}
	if c.CallbackTimeout < 0 {
		return fmt.Errorf("callback timeout must not be negative")
	}
	return nil
}

// StoreFactoryConfig converts the store settings into a store.Config.
func (c *Config) StoreFactoryConfig() (store.Config, error) {
	sc := store.Config{
		Type: store.ParseStoreType(c.Store.Type),
		Redis: store.RedisOptions{
			Addr:     c.Store.RedisAddr,
			Password: c.Store.RedisPassword,
			DB:       c.Store.RedisDB,
		},
		File: store.FileOptions{
			Path:    c.Store.FilePath,
			AppName: store.DefaultAppName,
		},
		SQLite: store.SQLiteOptions{
			Path: c.Store.SQLitePath,
		},
	}
	if sc.Type == store.StoreTypeSQLite && sc.SQLite.Path == "" {
		path, err := defaultSQLitePath()
		if err != nil {
			return store.Config{}, err
		}
		sc.SQLite.Path = path
	}
	if c.Store.EncryptionKey != "" {
		key, err := store.ParseKey(c.Store.EncryptionKey)
		if err != nil {
			return store.Config{}, err
		}
		sc.EncryptionKey = key
	}
	return sc, nil
}

func defaultSQLitePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, store.DefaultAppName, "tokens.db"), nil
}
