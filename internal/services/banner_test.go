package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBannerService_UploadBanner(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	event, _ := addEvent(t, store, models.EventPending, 500, 10)

	dir := t.TempDir()
	storage, err := NewLocalStorageService(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)
	svc := NewBannerService(store, storage, discardLogger())
	svc.now = fixedNow

	first, err := svc.UploadBanner(ctx, organiser, event.ID, bytes.NewReader(pngImage(t, 300, 200)))
	require.NoError(t, err)
	require.True(t, first.HasBanner())
	assert.True(t, strings.HasPrefix(first.BannerURL, "http://localhost:8080/uploads/events/"+event.ID+"/banner-"))

	firstPath := filepath.Join(dir, filepath.FromSlash(first.BannerKey))
	_, err = os.Stat(firstPath)
	require.NoError(t, err)

	second, err := svc.UploadBanner(ctx, organiser, event.ID, bytes.NewReader(pngImage(t, 50, 50)))
	require.NoError(t, err)
	assert.NotEqual(t, first.BannerKey, second.BannerKey)

	// the replaced banner is removed
	_, err = os.Stat(firstPath)
	assert.True(t, os.IsNotExist(err))
}

func TestBannerService_UploadBannerRejected(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	event, _ := addEvent(t, store, models.EventApproved, 500, 10)
	cancelled, _ := addEvent(t, store, models.EventCancelled, 500, 10)

	storage, err := NewLocalStorageService(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	svc := NewBannerService(store, storage, discardLogger())

	tests := []struct {
		name    string
		user    *models.User
		eventID string
		body    []byte
		wantErr error
	}{
		{"anonymous", nil, event.ID, pngImage(t, 10, 10), models.ErrUnauthenticated},
		{"not the owner", rival, event.ID, pngImage(t, 10, 10), models.ErrForbidden},
		{"cancelled event", organiser, cancelled.ID, pngImage(t, 10, 10), models.ErrInvalidTransition},
		{"not an image", organiser, event.ID, []byte("plain text"), models.ErrInvalidInput},
		{"missing event", organiser, "missing", pngImage(t, 10, 10), models.ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadBanner(ctx, tt.user, tt.eventID, bytes.NewReader(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	stored, err := store.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasBanner())
}
