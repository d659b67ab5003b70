package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/receiptvault/receiptvault/internal/apperr"
)

// LocalStore keeps images on the local filesystem under a base directory.
// It backs development setups without an S3 bucket.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create uploads dir %q: %w", dir, err)
	}
	return &LocalStore{dir: dir, logger: logger}, nil
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", apperr.Wrap(apperr.ErrUploadFailed, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("storage.local_put_failed", "key", key, "error", err)
		return "", apperr.Wrap(apperr.ErrUploadFailed, err)
	}
	return "/uploads/" + key, nil
}

func (s *LocalStore) Fetch(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return data, nil
}

// resolve rejects keys that would escape the base directory.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(s.dir, clean), nil
}
