package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var (
	buyer     = &models.User{ID: "buyer-1", Email: "buyer@example.com", Role: models.RolePublic}
	organiser = &models.User{ID: "org-user", Email: "org@example.com", Role: models.RoleOrganiser}
	admin     = &models.User{ID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUser stands in for the auth middleware
func withUser(user *models.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(middleware.SetUserContext(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRouter(user *models.User, routes func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(withUser(user))
	routes(r)
	return r
}

func newJSONRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func record(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return record(h, newJSONRequest(method, target, body))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	decodeBody(t, rr, &body)
	return body.Code
}
