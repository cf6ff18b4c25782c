package store

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-training/implicit-oauth/pkg/core"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by a vault TokenSource when nothing has been saved.
var ErrNoToken = errors.New("no access token saved")

const namespacePrefix = "access_token:"

// NamespaceFor returns the storage key used for a client's access token.
func NamespaceFor(clientID string) string {
	return namespacePrefix + clientID
}

var _ core.Vault = (*Vault)(nil)

// Vault binds a token store to one client's namespace.
type Vault struct {
	backend   core.TokenStore
	namespace string
}

// NewVault creates a vault holding clientID's token in backend.
func NewVault(backend core.TokenStore, clientID string) *Vault {
	return &Vault{
		backend:   backend,
		namespace: NamespaceFor(clientID),
	}
}

// Namespace returns the key the vault writes under.
func (v *Vault) Namespace() string {
	return v.namespace
}

// Save replaces the stored token.
func (v *Vault) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return v.backend.SaveAccessToken(ctx, v.namespace, token)
}

// Load returns the stored token. ok is false when nothing has been saved.
func (v *Vault) Load(ctx context.Context) (token string, ok bool, err error) {
	token, err = v.backend.GetAccessToken(ctx, v.namespace)
	if errors.Is(err, ErrTokenNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Clear removes the stored token. Clearing an empty vault is not an error.
func (v *Vault) Clear(ctx context.Context) error {
	err := v.backend.DeleteAccessToken(ctx, v.namespace)
	if errors.Is(err, ErrTokenNotFound) {
		return nil
	}
	return err
}

// TokenSource exposes the stored token as an oauth2.TokenSource.
// Tokens from the implicit grant carry no refresh token, so the source
// simply re-reads the vault on every call.
func (v *Vault) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &vaultTokenSource{ctx: ctx, vault: v}
}

// Client returns an HTTP client that sends the stored token as a bearer token.
func (v *Vault) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, v.TokenSource(ctx))
}

type vaultTokenSource struct {
	ctx   context.Context
	vault *Vault
}

func (s *vaultTokenSource) Token() (*oauth2.Token, error) {
	token, ok, err := s.vault.Load(s.ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoToken
	}
	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}, nil
}
