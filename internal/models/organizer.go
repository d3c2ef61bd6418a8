package models

import (
	"regexp"
	"strings"
	"time"
)

// OrganizerStatus represents where an organizer is in KYC review
type OrganizerStatus string

const (
	OrganizerPending   OrganizerStatus = "PENDING"
	OrganizerActive    OrganizerStatus = "ACTIVE"
	OrganizerSuspended OrganizerStatus = "SUSPENDED"
)

// Organizer represents an organization that publishes events
type Organizer struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	OrgName    string          `json:"org_name" db:"org_name"`
	TaxID      string          `json:"tax_id" db:"tax_id"`
	Status     OrganizerStatus `json:"status" db:"status"`
	IsVerified bool            `json:"is_verified" db:"is_verified"`
	ReviewNote string          `json:"review_note,omitempty" db:"review_note"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// OrganizerEvents is the public event history of one organizer
type OrganizerEvents struct {
	OrganizerID string   `json:"organizer_id"`
	Upcoming    []*Event `json:"upcoming"`
	Past        []*Event `json:"past"`
}

// KYCRequest represents an organizer onboarding submission
type KYCRequest struct {
	OrgName string `json:"org_name"`
	TaxID   string `json:"tax_id"`
}

// PAN format: five letters, four digits, one letter.
var taxIDRegex = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// Normalize trims whitespace and upper-cases the tax id
func (req *KYCRequest) Normalize() {
	req.OrgName = strings.TrimSpace(req.OrgName)
	req.TaxID = strings.ToUpper(strings.TrimSpace(req.TaxID))
}

// Validate validates the KYC submission
func (req *KYCRequest) Validate() error {
	if req.OrgName == "" {
		return invalid("org_name", "organization name is required")
	}
	if len(req.OrgName) > 200 {
		return invalid("org_name", "organization name must be less than 200 characters")
	}
	if !taxIDRegex.MatchString(req.TaxID) {
		return invalid("tax_id", "tax id must look like ABCDE1234F")
	}
	return nil
}

// IsActive returns true if the organizer may publish events
func (o *Organizer) IsActive() bool {
	return o != nil && o.Status == OrganizerActive
}

// CanResubmit returns true if a new KYC submission may replace this record
func (o *Organizer) CanResubmit() bool {
	return o.Status == OrganizerSuspended
}
