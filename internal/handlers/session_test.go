package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-marketplace/internal/auth"
	"event-marketplace/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) EnsureProfile(ctx context.Context, id models.Identity) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfiles) GetProfile(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfiles) UpdateProfile(ctx context.Context, user *models.User, req *models.ProfileUpdateRequest) (*models.User, error) {
	args := m.Called(ctx, user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestSessionHandler(t *testing.T) {
	verifier := auth.NewTokenVerifier("handler-test-secret", "", "")
	sessions := auth.NewSessionStore("handler-session-secret-0123456789", 3600, false)

	token, err := verifier.Issue(models.Identity{Subject: "buyer-1", Email: "buyer@example.com"}, time.Hour)
	require.NoError(t, err)

	profiles := new(MockProfiles)
	profiles.On("EnsureProfile", mock.Anything, mock.MatchedBy(func(id models.Identity) bool {
		return id.Subject == "buyer-1"
	})).Return(buyer, nil)

	h := NewSessionHandler(verifier, profiles, sessions, discardLogger())
	router := chi.NewRouter()
	router.Post("/api/session", h.Create)
	router.Delete("/api/session", h.Delete)

	t.Run("valid token sets the cookie", func(t *testing.T) {
		rr := serve(t, router, "POST", "/api/session", `{"access_token":"`+token+`"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.SessionName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		// the cookie carries the token back
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(cookies[0])
		got, err := sessions.Token(req)
		require.NoError(t, err)
		assert.Equal(t, token, got)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := serve(t, router, "POST", "/api/session", `{"access_token":"forged"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		rr := serve(t, router, "DELETE", "/api/session", "")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Less(t, cookies[0].MaxAge, 0)
	})
}

func TestSessionHandler_ProfileFailure(t *testing.T) {
	verifier := auth.NewTokenVerifier("handler-test-secret", "", "")
	token, err := verifier.Issue(models.Identity{Subject: "buyer-1"}, time.Hour)
	require.NoError(t, err)

	profiles := new(MockProfiles)
	profiles.On("EnsureProfile", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	h := NewSessionHandler(verifier, profiles, auth.NewSessionStore("handler-session-secret-0123456789", 3600, false), discardLogger())
	rr := serve(t, http.HandlerFunc(h.Create), "POST", "/api/session", `{"access_token":"`+token+`"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestProfileHandler(t *testing.T) {
	profiles := new(MockProfiles)
	profiles.On("GetProfile", mock.Anything, buyer).Return(buyer, nil)
	profiles.On("UpdateProfile", mock.Anything, buyer, &models.ProfileUpdateRequest{DisplayName: "Asha K"}).
		Return(&models.User{ID: buyer.ID, DisplayName: "Asha K"}, nil)
	profiles.On("UpdateProfile", mock.Anything, buyer, &models.ProfileUpdateRequest{DisplayName: ""}).
		Return(nil, &models.ValidationError{Field: "display_name", Message: "display name is required"})

	h := NewProfileHandler(profiles, discardLogger())
	router := newRouter(buyer, func(r chi.Router) {
		r.Get("/api/me", h.Get)
		r.Patch("/api/me", h.Update)
	})

	rr := serve(t, router, "GET", "/api/me", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, router, "PATCH", "/api/me", `{"display_name":"Asha K"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Asha K")

	rr = serve(t, router, "PATCH", "/api/me", `{"display_name":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "display name is required")

	rr = serve(t, router, "PATCH", "/api/me", `{"role":"ADMIN"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	profiles.AssertExpectations(t)
}
