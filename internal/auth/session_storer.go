package auth

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	SessionName    = "em_session"
	accessTokenKey = "access_token"
)

var ErrNoSession = errors.New("no session token")

// SessionStore keeps the caller's access token in a signed cookie so browser
// clients do not have to send an Authorization header.
type SessionStore struct {
	store sessions.Store
	name  string
}

// NewSessionStore creates a cookie-backed token store
func NewSessionStore(secret string, maxAge int, secure bool) *SessionStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store, name: SessionName}
}

// Token returns the access token stored in the request's session
func (s *SessionStore) Token(r *http.Request) (string, error) {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return "", err
	}
	token, ok := session.Values[accessTokenKey].(string)
	if !ok || token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Save writes the access token into the session cookie
func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, token string) error {
	// a stale cookie signed with an old key still yields a usable new session
	session, _ := s.store.Get(r, s.name)
	session.Values[accessTokenKey] = token
	return session.Save(r, w)
}

// Clear expires the session cookie
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, s.name)
	delete(session.Values, accessTokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
