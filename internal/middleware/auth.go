package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"event-marketplace/internal/models"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// TokenVerifier validates identity-provider access tokens
type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

// TokenSource reads a token saved in the browser session
type TokenSource interface {
	Token(r *http.Request) (string, error)
}

// ProfileLoader maps a verified identity to the persisted user
type ProfileLoader interface {
	EnsureProfile(ctx context.Context, id models.Identity) (*models.User, error)
}

// AuthMiddleware provides authentication functionality
type AuthMiddleware struct {
	verifier TokenVerifier
	sessions TokenSource
	profiles ProfileLoader
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware. sessions may be nil.
func NewAuthMiddleware(verifier TokenVerifier, sessions TokenSource, profiles ProfileLoader, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		sessions: sessions,
		profiles: profiles,
		logger:   logger,
	}
}

// LoadUser resolves the caller from a bearer token, or from the session
// cookie when no Authorization header is sent, and adds the persisted user
// to the context. Requests without a valid token continue anonymously.
func (m *AuthMiddleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" && m.sessions != nil {
			token, _ = m.sessions.Token(r)
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("rejected access token", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.profiles.EnsureProfile(r.Context(), identity)
		if err != nil {
			m.logger.Error("failed to load profile", "subject", identity.Subject, "error", err)
			writeJSONError(w, http.StatusServiceUnavailable, "could not load your profile, please retry")
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserContext(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the user has the required role. Admins pass every check.
func RequireRole(role models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !user.HasRole(role) {
				writeJSONError(w, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext retrieves the user from request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// SetUserContext sets the user in the context
func SetUserContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
