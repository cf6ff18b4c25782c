package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-training/implicit-oauth/pkg/core"
)

var _ core.TokenStore = (*FileStore)(nil)

// FileStore keeps tokens in a JSON file readable only by the owner.
// Every operation reads the file afresh, so several processes sharing one
// path see each other's writes. Writes hold an advisory lock on
// <path>.lock across the read-modify-rename and replace the file through a
// rename, so readers never observe a partially written document.
type FileStore struct {
	path string
}

// tokenFile is the JSON structure stored on disk.
type tokenFile struct {
	Tokens map[string]string `json:"tokens"`
}

// FileOptions configures a FileStore.
type FileOptions struct {
	// Path of the token file. Defaults to <user config dir>/<AppName>/tokens.json.
	Path string
	// AppName names the default config sub-directory.
	AppName string
}

// DefaultAppName is used when FileOptions.AppName is empty.
const DefaultAppName = "implicit-oauth"

// pathLocks serializes writers within the process; advisory file locks are
// per process and do not exclude goroutines.
var pathLocks sync.Map

// NewFileStore opens (or prepares) the token file described by opts.
func NewFileStore(opts FileOptions) (*FileStore, error) {
	path := opts.Path
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		appName := opts.AppName
		if appName == "" {
			appName = DefaultAppName
		}
		path = filepath.Join(configDir, appName, "tokens.json")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	s := &FileStore{path: path}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// read returns the tokens currently on disk. A missing file holds no tokens.
func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var file tokenFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if file.Tokens == nil {
		file.Tokens = make(map[string]string)
	}
	return file.Tokens, nil
}

// update runs fn on the current tokens and persists the result, holding the
// process and file locks throughout.
func (s *FileStore) update(fn func(tokens map[string]string) error) error {
	v, _ := pathLocks.LoadOrStore(s.path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	lock, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open token lock file: %w", err)
	}
	defer lock.Close()
	if err := lockFile(lock); err != nil {
		return fmt.Errorf("failed to lock token file: %w", err)
	}
	defer func() { _ = unlockFile(lock) }()

	tokens, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(tokens); err != nil {
		return err
	}
	return s.persist(tokens)
}

func (s *FileStore) persist(tokens map[string]string) error {
	dir := filepath.Dir(s.path)
	data, err := json.MarshalIndent(tokenFile{Tokens: tokens}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize tokens: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tokens: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync tokens: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// SaveAccessToken stores token under key and rewrites the file.
func (s *FileStore) SaveAccessToken(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if token == "" {
		return ErrEmptyToken
	}
	return s.update(func(tokens map[string]string) error {
		tokens[key] = token
		return nil
	})
}

// GetAccessToken returns the token stored under key.
func (s *FileStore) GetAccessToken(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	tokens, err := s.read()
	if err != nil {
		return "", err
	}
	token, ok := tokens[key]
	if !ok {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// DeleteAccessToken removes the token stored under key and rewrites the file.
func (s *FileStore) DeleteAccessToken(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.update(func(tokens map[string]string) error {
		if _, ok := tokens[key]; !ok {
			return ErrTokenNotFound
		}
		delete(tokens, key)
		return nil
	})
}

// Path returns the path to the token file.
func (s *FileStore) Path() string {
	return s.path
}

// Close implements io.Closer; writes are never buffered.
func (s *FileStore) Close() error {
	return nil
}
