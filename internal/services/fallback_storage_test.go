package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalStorageService_Upload(t *testing.T) {
	tempDir := t.TempDir()
	service, err := NewLocalStorageService(tempDir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	testContent := "test file content"
	url, err := service.Upload(context.Background(), "/events/e1/banner.jpg", strings.NewReader(testContent), "image/jpeg", int64(len(testContent)))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/events/e1/banner.jpg", url)

	content, err := os.ReadFile(filepath.Join(tempDir, "events", "e1", "banner.jpg"))
	require.NoError(t, err)
	assert.Equal(t, testContent, string(content))
}

func TestLocalStorageService_Upload_SizeMismatch(t *testing.T) {
	service, err := NewLocalStorageService(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	_, err = service.Upload(context.Background(), "a.txt", strings.NewReader("abc"), "text/plain", 10)
	assert.ErrorContains(t, err, "size mismatch")
}

func TestLocalStorageService_KeysStayInsideBase(t *testing.T) {
	tempDir := t.TempDir()
	base := filepath.Join(tempDir, "store")
	service, err := NewLocalStorageService(base, "http://localhost:8080/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = service.Upload(ctx, "../outside.txt", strings.NewReader("x"), "text/plain", 1)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "outside.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(tempDir, "outside.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = service.Upload(ctx, "", strings.NewReader("x"), "text/plain", 1)
	assert.Error(t, err)
}

func TestLocalStorageService_DeleteAndExists(t *testing.T) {
	tempDir := t.TempDir()
	service, err := NewLocalStorageService(tempDir, "http://localhost:8080/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = service.Upload(ctx, "events/e1/banner.jpg", strings.NewReader("x"), "image/jpeg", 1)
	require.NoError(t, err)

	exists, err := service.Exists(ctx, "events/e1/banner.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, service.Delete(ctx, "events/e1/banner.jpg"))
	exists, err = service.Exists(ctx, "events/e1/banner.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	// empty parent directories are removed
	_, err = os.Stat(filepath.Join(tempDir, "events"))
	assert.True(t, os.IsNotExist(err))

	// deleting a missing file is not an error
	assert.NoError(t, service.Delete(ctx, "events/e1/banner.jpg"))
}

type failingStorage struct {
	StorageService
	err error
}

func (f *failingStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	// consume the reader so the fallback must rewind it
	_, _ = io.Copy(io.Discard, reader)
	return "", f.err
}

func (f *failingStorage) Delete(ctx context.Context, key string) error {
	return f.err
}

func (f *failingStorage) Exists(ctx context.Context, key string) (bool, error) {
	return false, f.err
}

func TestStorageServiceWithFallback_Upload(t *testing.T) {
	local, err := NewLocalStorageService(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	primary := &failingStorage{err: errors.New("r2 down")}
	service := NewStorageServiceWithFallback(primary, local, discardLogger())
	ctx := context.Background()

	t.Run("seekable reader falls back", func(t *testing.T) {
		url, err := service.Upload(ctx, "k.txt", strings.NewReader("hello"), "text/plain", 5)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/uploads/k.txt", url)

		exists, err := service.Exists(ctx, "k.txt")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("non-seekable reader fails", func(t *testing.T) {
		_, err := service.Upload(ctx, "k2.txt", io.MultiReader(strings.NewReader("hello")), "text/plain", 5)
		assert.ErrorContains(t, err, "cannot reset reader")
	})
}

func TestStorageServiceWithFallback_Delete(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStorageService(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	service := NewStorageServiceWithFallback(&failingStorage{err: errors.New("r2 down")}, local, discardLogger())
	assert.NoError(t, service.Delete(ctx, "missing.txt"))

	both := NewStorageServiceWithFallback(&failingStorage{err: errors.New("a")}, &failingStorage{err: errors.New("b")}, discardLogger())
	assert.ErrorContains(t, both.Delete(ctx, "x"), "both storages failed")
}
