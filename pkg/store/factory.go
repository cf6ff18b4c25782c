package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-training/implicit-oauth/pkg/core"
)

// StoreType represents the type of store backend.
type StoreType string

const (
	// StoreTypeMemory represents in-memory storage.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeRedis represents Redis storage.
	StoreTypeRedis StoreType = "redis"
	// StoreTypeFile represents a JSON file in the user's config directory.
	StoreTypeFile StoreType = "file"
	// StoreTypeSQLite represents a local SQLite database.
	StoreTypeSQLite StoreType = "sqlite"
)

// Config contains configuration for creating a store.
type Config struct {
	// Type specifies the store type.
	Type StoreType
	// Redis contains Redis-specific configuration.
	Redis RedisOptions
	// File contains file-specific configuration.
	File FileOptions
	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteOptions
	// EncryptionKey, when set, seals every token before it reaches the backend.
	EncryptionKey []byte
}

// Factory creates store instances based on configuration.
type Factory struct {
	config Config
}

// NewFactory creates a new store factory with the provided configuration.
func NewFactory(config Config) *Factory {
	return &Factory{
		config: config,
	}
}

// Create creates and returns a new store instance based on the factory configuration.
// Returns an error if the store type is invalid or if store creation fails.
func (f *Factory) Create() (core.TokenStore, error) {
	backend, err := f.backend()
	if err != nil {
		return nil, err
	}
	if len(f.config.EncryptionKey) == 0 {
		return backend, nil
	}
	sealed, err := NewSealedStore(backend, f.config.EncryptionKey)
	if err != nil {
		_ = Close(backend)
		return nil, err
	}
	return sealed, nil
}

func (f *Factory) backend() (core.TokenStore, error) {
	switch f.config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		return NewRedisStoreFromOptions(f.config.Redis)
	case StoreTypeFile:
		return NewFileStore(f.config.File)
	case StoreTypeSQLite:
		return NewSQLiteStore(context.Background(), f.config.SQLite)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", f.config.Type)
	}
}

// NewStore is a convenience function that creates a store directly from configuration.
// It's equivalent to NewFactory(config).Create().
func NewStore(config Config) (core.TokenStore, error) {
	factory := NewFactory(config)
	return factory.Create()
}

// ParseStoreType parses a string into a StoreType.
// Returns StoreTypeMemory for invalid inputs.
func ParseStoreType(s string) StoreType {
	switch strings.ToLower(s) {
	case "memory":
		return StoreTypeMemory
	case "redis":
		return StoreTypeRedis
	case "file":
		return StoreTypeFile
	case "sqlite":
		return StoreTypeSQLite
	default:
		return StoreTypeMemory
	}
}

// String returns the string representation of a StoreType.
func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the StoreType is valid.
func (t StoreType) IsValid() bool {
	switch t {
	case StoreTypeMemory, StoreTypeRedis, StoreTypeFile, StoreTypeSQLite:
		return true
	default:
		return false
	}
}

// MustCreate creates a store and panics if creation fails.
// This is useful for initialization where store creation must succeed.
func MustCreate(config Config) core.TokenStore {
	store, err := NewStore(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create store: %v", err))
	}
	return store
}

// RedisConfig creates a Redis store configuration with the provided options.
func RedisConfig(redisOpts RedisOptions) Config {
	return Config{
		Type:  StoreTypeRedis,
		Redis: redisOpts,
	}
}

// MemoryConfig creates a memory store configuration.
func MemoryConfig() Config {
	return Config{
		Type: StoreTypeMemory,
	}
}

// FileConfig creates a file store configuration.
func FileConfig(fileOpts FileOptions) Config {
	return Config{
		Type: StoreTypeFile,
		File: fileOpts,
	}
}

// SQLiteConfig creates a SQLite store configuration.
func SQLiteConfig(path string) Config {
	return Config{
		Type:   StoreTypeSQLite,
		SQLite: SQLiteOptions{Path: path},
	}
}
