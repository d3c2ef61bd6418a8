// Package auth verifies identity-provider access tokens and keeps them in a
// browser session cookie.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"event-marketplace/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// Claims is the subset of identity-provider claims the marketplace reads.
// The provider's own role claim is ignored; roles live in the profile table.
type Claims struct {
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

type UserMetadata struct {
	FullName      string `json:"full_name,omitempty"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	PhoneVerified bool   `json:"phone_verified,omitempty"`
}

// Identity converts verified claims into a models.Identity
func (c *Claims) Identity() models.Identity {
	name := c.UserMetadata.FullName
	if name == "" {
		name = c.UserMetadata.Name
	}
	return models.Identity{
		Subject:       c.Subject,
		Email:         c.Email,
		Name:          name,
		EmailVerified: c.UserMetadata.EmailVerified,
		PhoneVerified: c.UserMetadata.PhoneVerified,
	}
}

// TokenVerifier validates HS256 tokens signed with the provider's shared secret
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenVerifier creates a verifier. Empty issuer or audience disables that check.
func NewTokenVerifier(secret, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// Verify parses and validates a bearer token and returns the caller's identity
func (v *TokenVerifier) Verify(tokenStr string) (models.Identity, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
	if tokenStr == "" {
		return models.Identity{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Subject == "" {
		return models.Identity{}, ErrInvalidToken
	}
	return c.Identity(), nil
}

// Issue signs a token for id that this verifier accepts. The server uses it
// for development logins when no identity provider is configured.
func (v *TokenVerifier) Issue(id models.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Email: id.Email,
		UserMetadata: UserMetadata{
			FullName:      id.Name,
			EmailVerified: id.EmailVerified,
			PhoneVerified: id.PhoneVerified,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
