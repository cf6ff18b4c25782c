package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// AttemptIDKey is a custom context key type for storing the authorization attempt ID in context.
type AttemptIDKey struct{}

// VaultKey is a custom context key type for storing the Vault in context.
type VaultKey struct{}

// ConfigurationKey is a custom context key type for storing the client Configuration in context.
type ConfigurationKey struct{}

// NewAttemptID returns a fresh identifier for one authorization attempt.
func NewAttemptID() string {
	return uuid.New().String()
}

// WithAttemptID returns a new context carrying the given attempt ID.
// A new ID is generated when id is empty.
func WithAttemptID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewAttemptID()
	}
	return context.WithValue(ctx, AttemptIDKey{}, id)
}

// AttemptIDFromContext returns the attempt ID stored in ctx, or "".
func AttemptIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(AttemptIDKey{}).(string)
	return id
}

// LoggerFromCtx returns a slog.Logger with attempt_id field if present in context.
// If no attempt ID is found, it returns the default logger.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if id := AttemptIDFromContext(ctx); id != "" {
		return slog.Default().With("attempt_id", id)
	}
	return slog.Default()
}

// WithVault returns a new context with the provided Vault set.
func WithVault(ctx context.Context, vault Vault) context.Context {
	return context.WithValue(ctx, VaultKey{}, vault)
}

// VaultFromContext retrieves the Vault from the context.
func VaultFromContext(ctx context.Context) (Vault, error) {
	vault, ok := ctx.Value(VaultKey{}).(Vault)
	if !ok {
		return nil, fmt.Errorf("missing vault")
	}
	return vault, nil
}

// WithConfiguration returns a new context carrying the client configuration.
func WithConfiguration(ctx context.Context, cfg Configuration) context.Context {
	return context.WithValue(ctx, ConfigurationKey{}, cfg)
}

// ConfigurationFromContext retrieves the client configuration from the context.
func ConfigurationFromContext(ctx context.Context) (Configuration, error) {
	cfg, ok := ctx.Value(ConfigurationKey{}).(Configuration)
	if !ok {
		return Configuration{}, fmt.Errorf("missing configuration")
	}
	return cfg, nil
}
