package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore saves blobs to disk under a base directory. Used in development
// and tests; documents are served back via their relative path.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// BasePath exposes the storage directory for static file serving.
func (f *FileStore) BasePath() string { return f.basePath }

func (f *FileStore) path(key string) string {
	// keys are uuid-prefixed and never contain path separators, but guard anyway
	return filepath.Join(f.basePath, filepath.Base(key))
}

// Put writes the blob to disk.
func (f *FileStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	out, err := os.Create(f.path(key))
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// URL returns the public path the file is served under.
func (f *FileStore) URL(_ context.Context, key string) (string, error) {
	return f.baseURL + "/" + filepath.Base(key), nil
}

// Remove deletes the blob; a missing file is not an error.
func (f *FileStore) Remove(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
