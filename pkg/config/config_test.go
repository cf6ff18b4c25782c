package config

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-training/implicit-oauth/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://foursquare.com/oauth2/authenticate", cfg.OAuth.Server.OAuthBaseURL)
	assert.Equal(t, "https://api.foursquare.com/v2", cfg.OAuth.Server.APIBaseURL)
	assert.Equal(t, "20141109", cfg.OAuth.Version)
	assert.Equal(t, "file", cfg.Store.Type)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.CallbackTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("IMPLICIT_OAUTH_CLIENT_ID", "client-123")
	t.Setenv("IMPLICIT_OAUTH_CLIENT_REDIRECT_URL", "http://127.0.0.1:8085/callback")
	t.Setenv("IMPLICIT_OAUTH_SERVER_OAUTH_BASE_URL", "https://auth.example.com/authorize")
	t.Setenv("IMPLICIT_OAUTH_API_VERSION", "20240101")
	t.Setenv("IMPLICIT_OAUTH_STORE_TYPE", "redis")
	t.Setenv("IMPLICIT_OAUTH_STORE_REDIS_ADDR", "redis:6380")
	t.Setenv("IMPLICIT_OAUTH_STORE_REDIS_DB", "3")
	t.Setenv("IMPLICIT_OAUTH_CALLBACK_TIMEOUT", "90s")
	t.Setenv("IMPLICIT_OAUTH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "client-123", cfg.OAuth.Client.ID)
	assert.Equal(t, "http://127.0.0.1:8085/callback", cfg.OAuth.Client.RedirectURL)
	assert.Equal(t, "https://auth.example.com/authorize", cfg.OAuth.Server.OAuthBaseURL)
	assert.Equal(t, "20240101", cfg.OAuth.Version)
	assert.Equal(t, 90*time.Second, cfg.CallbackTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)

	sc, err := cfg.StoreFactoryConfig()
	require.NoError(t, err)
	assert.Equal(t, store.StoreTypeRedis, sc.Type)
	assert.Equal(t, "redis:6380", sc.Redis.Addr)
	assert.Equal(t, 3, sc.Redis.DB)
	assert.Nil(t, sc.EncryptionKey)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("IMPLICIT_OAUTH_STORE_REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "sqlite", mutate: func(c *Config) { c.Store.Type = "SQLite" }},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Type = "etcd" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.CallbackTimeout = -time.Second }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestStoreFactoryConfig(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, store.KeySize)

	t.Run("encryption key", func(t *testing.T) {
		t.Setenv("IMPLICIT_OAUTH_STORE_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
		cfg, err := Load()
		require.NoError(t, err)

		sc, err := cfg.StoreFactoryConfig()
		require.NoError(t, err)
		assert.Equal(t, key, sc.EncryptionKey)
	})

	t.Run("bad encryption key", func(t *testing.T) {
		t.Setenv("IMPLICIT_OAUTH_STORE_ENCRYPTION_KEY", "c2hvcnQ=")
		cfg, err := Load()
		require.NoError(t, err)

		_, err = cfg.StoreFactoryConfig()
		assert.Error(t, err)
	})

	t.Run("sqlite default path", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("IMPLICIT_OAUTH_STORE_TYPE", "sqlite")
		cfg, err := Load()
		require.NoError(t, err)

		sc, err := cfg.StoreFactoryConfig()
		require.NoError(t, err)
		assert.Equal(t, store.StoreTypeSQLite, sc.Type)
		assert.Equal(t, "tokens.db", filepath.Base(sc.SQLite.Path))
	})

	t.Run("file path", func(t *testing.T) {
		t.Setenv("IMPLICIT_OAUTH_STORE_FILE_PATH", "/tmp/implicit/tokens.json")
		cfg, err := Load()
		require.NoError(t, err)

		sc, err := cfg.StoreFactoryConfig()
		require.NoError(t, err)
		assert.Equal(t, store.StoreTypeFile, sc.Type)
		assert.Equal(t, "/tmp/implicit/tokens.json", sc.File.Path)
	})
}
