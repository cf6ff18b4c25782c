package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/go-training/implicit-oauth/pkg/core"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealBroken is returned when a stored value cannot be decrypted with the
// configured key, or has been tampered with.
var ErrSealBroken = errors.New("stored access token cannot be unsealed")

// KeySize is the required length of a sealing key.
const KeySize = chacha20poly1305.KeySize

var _ core.TokenStore = (*SealedStore)(nil)

// SealedStore encrypts tokens with XChaCha20-Poly1305 before handing them to
// the wrapped backend. The namespace key is bound as additional data, so a
// sealed value copied to another namespace fails to open.
type SealedStore struct {
	backend core.TokenStore
	key     []byte
}

// NewSealedStore wraps backend with encryption under key.
func NewSealedStore(backend core.TokenStore, key []byte) (*SealedStore, error) {
	if backend == nil {
		return nil, errors.New("sealed store needs a backend")
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &SealedStore{backend: backend, key: k}, nil
}

// ParseKey decodes a base64 (standard or URL alphabet, padded or raw) sealing key.
func ParseKey(encoded string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		key, err := enc.DecodeString(encoded)
		if err == nil && len(key) == KeySize {
			return key, nil
		}
	}
	return nil, fmt.Errorf("sealing key must be base64 encoding of %d bytes", KeySize)
}

func (s *SealedStore) seal(key, token string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(token)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(token), []byte(key))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *SealedStore) open(key, value string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", ErrSealBroken
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrSealBroken
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", ErrSealBroken
	}
	return string(plain), nil
}

// SaveAccessToken seals token and stores it under key.
func (s *SealedStore) SaveAccessToken(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}
	sealed, err := s.seal(key, token)
	if err != nil {
		return err
	}
	return s.backend.SaveAccessToken(ctx, key, sealed)
}

// GetAccessToken loads and unseals the token stored under key.
func (s *SealedStore) GetAccessToken(ctx context.Context, key string) (string, error) {
	value, err := s.backend.GetAccessToken(ctx, key)
	if err != nil {
		return "", err
	}
	return s.open(key, value)
}

// DeleteAccessToken removes the token stored under key.
func (s *SealedStore) DeleteAccessToken(ctx context.Context, key string) error {
	return s.backend.DeleteAccessToken(ctx, key)
}

// Close closes the wrapped backend when it holds resources.
func (s *SealedStore) Close() error {
	return Close(s.backend)
}

// Close releases any resources held by a token store.
func Close(s core.TokenStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
