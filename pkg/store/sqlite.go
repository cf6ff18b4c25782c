package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-training/implicit-oauth/pkg/core"

	_ "modernc.org/sqlite"
)

var _ core.TokenStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS access_tokens (
	namespace  TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteOptions configures a SQLiteStore.
type SQLiteOptions struct {
	// Path of the database file. ":memory:" keeps the database in process.
	Path string
}

// SQLiteStore implements the core.TokenStore interface on a local SQLite
// database using the pure-Go modernc driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at opts.Path and ensures the schema exists.
func NewSQLiteStore(ctx context.Context, opts SQLiteOptions) (*SQLiteStore, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}

	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// Create the file with owner-only permissions before the driver opens it.
		f, err := os.OpenFile(opts.Path, os.O_RDWR|os.O_CREATE, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to create database file: %w", err)
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create token schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveAccessToken upserts token under key.
func (s *SQLiteStore) SaveAccessToken(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_tokens (namespace, token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			token = excluded.token,
			updated_at = excluded.updated_at`,
		key, token, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save access token to sqlite: %w", err)
	}
	return nil
}

// GetAccessToken returns the token stored under key.
func (s *SQLiteStore) GetAccessToken(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM access_tokens WHERE namespace = ?`, key,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to get access token from sqlite: %w", err)
	}
	return token, nil
}

// DeleteAccessToken removes the token stored under key.
func (s *SQLiteStore) DeleteAccessToken(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE namespace = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete access token from sqlite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete access token from sqlite: %w", err)
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
