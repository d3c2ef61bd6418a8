package models

import (
	"regexp"
	"strings"
	"time"
)

// UserRole represents the role of a user in the system
type UserRole string

const (
	RolePublic    UserRole = "PUBLIC"
	RoleOrganiser UserRole = "ORGANISER"
	RoleAdmin     UserRole = "ADMIN"
)

// User represents a persisted user profile. Role is authoritative only when
// read from storage; identity tokens never carry it.
type User struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	Role          UserRole  `json:"role" db:"role"`
	WalletBalance int64     `json:"wallet_balance" db:"wallet_balance"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	PhoneVerified bool      `json:"phone_verified" db:"phone_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Identity is what a verified identity-provider token tells us about the caller.
type Identity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
	PhoneVerified bool
}

// ProfileUpdateRequest represents the fields a user may change on their own profile
type ProfileUpdateRequest struct {
	DisplayName string `json:"display_name"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// HasRole reports whether the user satisfies a role check. Admin satisfies every check.
func (u *User) HasRole(role UserRole) bool {
	if u == nil {
		return false
	}
	return u.Role == role || u.Role == RoleAdmin
}

// IsAdmin returns true if the user holds administrative authority
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Validate validates a profile update
func (req *ProfileUpdateRequest) Validate() error {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return invalid("display_name", "display name is required")
	}
	if len(name) > 100 {
		return invalid("display_name", "display name must be less than 100 characters")
	}
	return nil
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if email == "" {
		return invalid("email", "email is required")
	}
	if len(email) > 255 {
		return invalid("email", "email must be less than 255 characters")
	}
	if !emailRegex.MatchString(email) {
		return invalid("email", "email format is invalid")
	}
	return nil
}

// ParseUserRole converts a stored role string, rejecting anything unknown.
func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(strings.ToUpper(s)) {
	case RolePublic:
		return RolePublic, nil
	case RoleOrganiser:
		return RoleOrganiser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", invalid("role", "invalid role")
}

// DefaultDisplayName derives a display name for a first-time profile.
func (id Identity) DefaultDisplayName() string {
	if n := strings.TrimSpace(id.Name); n != "" {
		return n
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return "Guest"
}
