package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-training/implicit-oauth/pkg/core"
)

// testTokenStoreContract runs the behavior every core.TokenStore backend shares.
func testTokenStoreContract(t *testing.T, newStore func(t *testing.T) core.TokenStore) {
	t.Helper()

	t.Run("save and get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.SaveAccessToken(ctx, "access_token:client_a", "tok_123456789"); err != nil {
			t.Fatalf("SaveAccessToken() error = %v", err)
		}
		got, err := s.GetAccessToken(ctx, "access_token:client_a")
		if err != nil {
			t.Fatalf("GetAccessToken() error = %v", err)
		}
		if got != "tok_123456789" {
			t.Errorf("GetAccessToken() = %q, want %q", got, "tok_123456789")
		}
	})

	t.Run("save replaces previous token", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.SaveAccessToken(ctx, "access_token:client_b", "first"); err != nil {
			t.Fatalf("first save error = %v", err)
		}
		if err := s.SaveAccessToken(ctx, "access_token:client_b", "second"); err != nil {
			t.Fatalf("second save error = %v", err)
		}
		got, err := s.GetAccessToken(ctx, "access_token:client_b")
		if err != nil {
			t.Fatalf("GetAccessToken() error = %v", err)
		}
		if got != "second" {
			t.Errorf("GetAccessToken() = %q, want %q", got, "second")
		}
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.SaveAccessToken(ctx, "access_token:one", "token-one"); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveAccessToken(ctx, "access_token:two", "token-two"); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteAccessToken(ctx, "access_token:one"); err != nil {
			t.Fatalf("DeleteAccessToken() error = %v", err)
		}
		if got, err := s.GetAccessToken(ctx, "access_token:two"); err != nil || got != "token-two" {
			t.Errorf("GetAccessToken(two) = %q, %v; want token-two, nil", got, err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetAccessToken(ctx, "access_token:missing")
		if !errors.Is(err, ErrTokenNotFound) {
			t.Errorf("GetAccessToken() error = %v, want %v", err, ErrTokenNotFound)
		}
		err = s.DeleteAccessToken(ctx, "access_token:missing")
		if !errors.Is(err, ErrTokenNotFound) {
			t.Errorf("DeleteAccessToken() error = %v, want %v", err, ErrTokenNotFound)
		}
	})

	t.Run("delete removes token", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.SaveAccessToken(ctx, "access_token:client_c", "tok"); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteAccessToken(ctx, "access_token:client_c"); err != nil {
			t.Fatalf("DeleteAccessToken() error = %v", err)
		}
		if _, err := s.GetAccessToken(ctx, "access_token:client_c"); !errors.Is(err, ErrTokenNotFound) {
			t.Errorf("GetAccessToken() after delete error = %v, want %v", err, ErrTokenNotFound)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tests := []struct {
			name    string
			key     string
			token   string
			wantErr error
		}{
			{name: "empty key", key: "", token: "tok", wantErr: ErrEmptyKey},
			{name: "empty token", key: "access_token:x", token: "", wantErr: ErrEmptyToken},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := s.SaveAccessToken(ctx, tt.key, tt.token)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("SaveAccessToken() error = %v, want %v", err, tt.wantErr)
				}
			})
		}
		if _, err := s.GetAccessToken(ctx, ""); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("GetAccessToken(\"\") error = %v, want %v", err, ErrEmptyKey)
		}
		if err := s.DeleteAccessToken(ctx, ""); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("DeleteAccessToken(\"\") error = %v, want %v", err, ErrEmptyKey)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const numGoroutines = 20
		var wg sync.WaitGroup
		wg.Add(numGoroutines * 2)

		for i := 0; i < numGoroutines; i++ {
			go func(index int) {
				defer wg.Done()
				key := "access_token:concurrent_" + string(rune('A'+index))
				if err := s.SaveAccessToken(ctx, key, "tok_"+string(rune('A'+index))); err != nil {
					t.Errorf("Failed to save token concurrently: %v", err)
				}
			}(i)
			go func(index int) {
				defer wg.Done()
				_, _ = s.GetAccessToken(ctx, "access_token:concurrent_"+string(rune('A'+index)))
			}(i)
		}
		wg.Wait()

		for i := 0; i < numGoroutines; i++ {
			key := "access_token:concurrent_" + string(rune('A'+i))
			if got, err := s.GetAccessToken(ctx, key); err != nil || got != "tok_"+string(rune('A'+i)) {
				t.Errorf("GetAccessToken(%s) = %q, %v", key, got, err)
			}
		}
	})
}
