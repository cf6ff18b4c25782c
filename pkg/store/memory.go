package store

import (
	"context"
	"errors"
	"sync"

	"github.com/go-training/implicit-oauth/pkg/core"
)

var (
	// ErrTokenNotFound is returned when no access token is stored under a key.
	ErrTokenNotFound = errors.New("access token not found")
	// ErrEmptyKey is returned when the namespace key is empty.
	ErrEmptyKey = errors.New("token key cannot be empty")
	// ErrEmptyToken is returned when attempting to save an empty token.
	ErrEmptyToken = errors.New("access token cannot be empty")
)

var _ core.TokenStore = (*MemoryStore)(nil)

// MemoryStore implements the core.TokenStore interface using an in-memory map.
// It provides thread-safe storage; tokens do not survive the process.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]string),
	}
}

// SaveAccessToken stores token under key, replacing any previous value.
func (m *MemoryStore) SaveAccessToken(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[key] = token
	return nil
}

// GetAccessToken returns the token stored under key.
// It returns ErrTokenNotFound if nothing is stored.
func (m *MemoryStore) GetAccessToken(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	token, exists := m.tokens[key]
	if !exists {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// DeleteAccessToken removes the token stored under key.
// It returns ErrTokenNotFound if nothing is stored.
func (m *MemoryStore) DeleteAccessToken(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokens[key]; !exists {
		return ErrTokenNotFound
	}
	delete(m.tokens, key)
	return nil
}

// Close implements io.Closer; there is nothing to release.
func (m *MemoryStore) Close() error {
	return nil
}
