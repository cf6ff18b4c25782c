package core

import "context"

// TokenStore defines the backend contract for persisting access tokens.
// Each key holds exactly one opaque token; saving overwrites.
type TokenStore interface {
	SaveAccessToken(ctx context.Context, key, token string) error
	GetAccessToken(ctx context.Context, key string) (string, error)
	DeleteAccessToken(ctx context.Context, key string) error
}

// Vault is a TokenStore bound to a single client namespace.
type Vault interface {
	// Save stores token, replacing any previous value.
	Save(ctx context.Context, token string) error
	// Load returns the stored token and whether one was present.
	Load(ctx context.Context) (string, bool, error)
	// Clear removes the stored token. Clearing an empty vault is not an error.
	Clear(ctx context.Context) error
}
