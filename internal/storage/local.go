package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalConfig stores blobs below Root and exposes them under BaseURL.
type LocalConfig struct {
	Root    string
	BaseURL string
}

// LocalStore writes blobs to a filesystem. The HTTP layer serves Root at BaseURL.
type LocalStore struct {
	fs      afero.Fs
	root    string
	baseURL string
}

// NewLocalStore stores blobs on the OS filesystem, creating Root when needed.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	if cfg.Root == "" {
		return nil, errors.New("storage: local root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return NewLocalStoreWithFs(afero.NewBasePathFs(afero.NewOsFs(), cfg.Root), cfg), nil
}

// NewLocalStoreWithFs stores blobs on an arbitrary afero filesystem rooted at "/".
func NewLocalStoreWithFs(fsys afero.Fs, cfg LocalConfig) *LocalStore {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStore{fs: fsys, root: cfg.Root, baseURL: baseURL}
}

// Root is the directory served for this store.
func (s *LocalStore) Root() string { return s.root }

// BaseURL is the URL prefix blobs are served under.
func (s *LocalStore) BaseURL() string { return s.baseURL }

func (s *LocalStore) Put(ctx context.Context, name string, body io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}

	target := filepath.FromSlash("/" + cleaned)
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("storage: create directory: %w", err)
	}
	if err := afero.WriteReader(s.fs, target, body); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", cleaned, err)
	}
	return joinURL(s.baseURL, cleaned), nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(filepath.FromSlash("/" + cleaned)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", cleaned, err)
	}
	return nil
}
