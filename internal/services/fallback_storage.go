package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorageService stores files on the local disk and serves them from baseURL
type LocalStorageService struct {
	basePath string
	baseURL  string
}

// NewLocalStorageService creates a local storage service rooted at basePath
func NewLocalStorageService(basePath, baseURL string) (*LocalStorageService, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &LocalStorageService{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// path resolves key inside basePath, rejecting keys that escape it
func (f *LocalStorageService) path(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimPrefix(key, "/"))
	full := filepath.Join(f.basePath, clean)
	if !strings.HasPrefix(full, filepath.Clean(f.basePath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return full, nil
}

// Upload saves a file to local storage
func (f *LocalStorageService) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	fullPath, err := f.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", size, written)
	}

	return f.GetURL(key), nil
}

// Delete removes a file from local storage
func (f *LocalStorageService) Delete(ctx context.Context, key string) error {
	fullPath, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	f.cleanupEmptyDirs(filepath.Dir(fullPath))
	return nil
}

// GetURL returns the public URL for a file
func (f *LocalStorageService) GetURL(key string) string {
	return fmt.Sprintf("%s/%s", f.baseURL, strings.TrimPrefix(key, "/"))
}

// Exists checks if a file exists in local storage
func (f *LocalStorageService) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := f.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if file exists: %w", err)
	}
	return true, nil
}

// cleanupEmptyDirs removes empty directories up to the base path
func (f *LocalStorageService) cleanupEmptyDirs(dir string) {
	if dir == filepath.Clean(f.basePath) || dir == "." || dir == "/" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err == nil {
		f.cleanupEmptyDirs(filepath.Dir(dir))
	}
}

// StorageServiceWithFallback wraps a primary storage service with a fallback
type StorageServiceWithFallback struct {
	primary  StorageService
	fallback StorageService
	logger   *slog.Logger
}

// NewStorageServiceWithFallback creates a storage service with fallback capability
func NewStorageServiceWithFallback(primary, fallback StorageService, logger *slog.Logger) *StorageServiceWithFallback {
	return &StorageServiceWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Upload tries primary storage first and falls back when the reader can be rewound
func (s *StorageServiceWithFallback) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	url, err := s.primary.Upload(ctx, key, reader, contentType, size)
	if err == nil {
		return url, nil
	}

	seeker, ok := reader.(io.Seeker)
	if !ok {
		return "", fmt.Errorf("primary storage failed and cannot reset reader for fallback: %w", err)
	}
	if _, seekErr := seeker.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("primary storage failed and cannot reset reader for fallback: %w", err)
	}

	s.logger.Warn("primary storage failed, using fallback", "key", key, "error", err)
	return s.fallback.Upload(ctx, key, reader, contentType, size)
}

// Delete tries to delete from both storages
func (s *StorageServiceWithFallback) Delete(ctx context.Context, key string) error {
	primaryErr := s.primary.Delete(ctx, key)
	fallbackErr := s.fallback.Delete(ctx, key)
	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("both storages failed - primary: %v, fallback: %v", primaryErr, fallbackErr)
	}
	return nil
}

// GetURL returns URL from primary storage
func (s *StorageServiceWithFallback) GetURL(key string) string {
	return s.primary.GetURL(key)
}

// Exists checks both storages
func (s *StorageServiceWithFallback) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.primary.Exists(ctx, key)
	if err == nil && exists {
		return true, nil
	}
	return s.fallback.Exists(ctx, key)
}
