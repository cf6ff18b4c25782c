package store

import (
	"context"
	"fmt"

	"github.com/go-training/implicit-oauth/pkg/core"
	"github.com/redis/rueidis"
)

var _ core.TokenStore = (*RedisStore)(nil)

// RedisStore implements the core.TokenStore interface using Redis via rueidis.
// Each token is a plain string value; SET replaces it atomically.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore creates a new instance of RedisStore with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// RedisOptions contains configuration for Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStoreFromOptions creates a new RedisStore with simplified options.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	return NewRedisStoreFromClientOption(rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
}

// NewRedisStoreFromClientOption creates a new RedisStore with full rueidis client options.
func NewRedisStoreFromClientOption(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() error {
	r.client.Close()
	return nil
}

// SaveAccessToken stores token under key without expiry.
func (r *RedisStore) SaveAccessToken(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}

	cmd := r.client.B().Set().Key(key).Value(token).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save access token to redis: %w", err)
	}
	return nil
}

// GetAccessToken returns the token stored under key.
// It returns ErrTokenNotFound if the key does not exist.
func (r *RedisStore) GetAccessToken(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	cmd := r.client.B().Get().Key(key).Build()
	token, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to get access token from redis: %w", err)
	}
	return token, nil
}

// DeleteAccessToken removes the token stored under key.
// It returns ErrTokenNotFound if the key does not exist.
func (r *RedisStore) DeleteAccessToken(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	cmd := r.client.B().Del().Key(key).Build()
	result, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to delete access token from redis: %w", err)
	}
	if result == 0 {
		return ErrTokenNotFound
	}
	return nil
}
