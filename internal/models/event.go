package models

import (
	"strings"
	"time"
)

// EventStatus represents the moderation status of an event
type EventStatus string

const (
	EventPending   EventStatus = "PENDING"
	EventApproved  EventStatus = "APPROVED"
	EventRejected  EventStatus = "REJECTED"
	EventCancelled EventStatus = "CANCELLED"
)

// Event represents an event listed in the catalog. Events are never
// physically deleted; cancellation is a status.
type Event struct {
	ID              string      `json:"id" db:"id"`
	OrganizerID     string      `json:"organizer_id" db:"organizer_id"`
	OwnerID         string      `json:"owner_id" db:"owner_id"`
	Title           string      `json:"title" db:"title"`
	Description     string      `json:"description" db:"description"`
	Category        string      `json:"category" db:"category"`
	Location        string      `json:"location" db:"location"`
	StartsAt        time.Time   `json:"starts_at" db:"starts_at"`
	BannerURL       string      `json:"banner_url,omitempty" db:"banner_url"`
	BannerKey       string      `json:"-" db:"banner_key"`
	Status          EventStatus `json:"status" db:"status"`
	RejectionReason string      `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ReviewedBy      *string     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time  `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`

	Tiers []*Tier `json:"tiers"`
}

// EventFilter narrows a catalog listing. Zero values mean "no constraint".
type EventFilter struct {
	Category    string
	Query       string
	From        *time.Time
	To          *time.Time
	Status      EventStatus
	OrganizerID string
	Limit       int
	Offset      int
}

// EventCreateRequest represents the data needed to publish a new event
type EventCreateRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Location    string              `json:"location"`
	StartsAt    time.Time           `json:"starts_at"`
	Tiers       []TierCreateRequest `json:"tiers"`
}

// EventUpdateRequest represents the editable details of an event
type EventUpdateRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Location    string              `json:"location"`
	StartsAt    time.Time           `json:"starts_at"`
	Tiers       []TierQuantityChange `json:"tiers,omitempty"`
}

const maxTiersPerEvent = 10

// Validate validates event creation data
func (req *EventCreateRequest) Validate(now time.Time) error {
	if err := validateEventDetails(req.Title, req.Description, req.Category, req.Location, req.StartsAt, now); err != nil {
		return err
	}
	if len(req.Tiers) == 0 {
		return invalid("tiers", "at least one ticket tier is required")
	}
	if len(req.Tiers) > maxTiersPerEvent {
		return invalid("tiers", "an event can have at most 10 ticket tiers")
	}
	seen := make(map[string]bool, len(req.Tiers))
	for i := range req.Tiers {
		if err := req.Tiers[i].Validate(); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(req.Tiers[i].Name))
		if seen[key] {
			return invalid("tiers", "tier names must be unique")
		}
		seen[key] = true
	}
	return nil
}

// Validate validates event update data
func (req *EventUpdateRequest) Validate(now time.Time) error {
	if err := validateEventDetails(req.Title, req.Description, req.Category, req.Location, req.StartsAt, now); err != nil {
		return err
	}
	for _, change := range req.Tiers {
		if change.TierID == "" {
			return invalid("tiers", "tier id is required")
		}
		if err := validateTierQuantity(change.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func validateEventDetails(title, description, category, location string, startsAt, now time.Time) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "title is required")
	}
	if len(title) > 255 {
		return invalid("title", "title must be less than 255 characters")
	}
	if len(description) > 10000 {
		return invalid("description", "description must be less than 10000 characters")
	}
	if strings.TrimSpace(category) == "" {
		return invalid("category", "category is required")
	}
	if len(category) > 50 {
		return invalid("category", "category must be less than 50 characters")
	}
	if strings.TrimSpace(location) == "" {
		return invalid("location", "location is required")
	}
	if len(location) > 255 {
		return invalid("location", "location must be less than 255 characters")
	}
	if startsAt.IsZero() {
		return invalid("starts_at", "start time is required")
	}
	// an hour of slack for clock skew between organizer and server
	if startsAt.Before(now.Add(-time.Hour)) {
		return invalid("starts_at", "start time cannot be in the past")
	}
	return nil
}

// IsBookable returns true if reservations may be made against the event
func (e *Event) IsBookable() bool {
	return e.Status == EventApproved
}

// IsEditable returns true if the organizer may still change the event
func (e *Event) IsEditable() bool {
	return e.Status == EventPending || e.Status == EventApproved
}

// FindTier returns the tier with the given id, or nil
func (e *Event) FindTier(tierID string) *Tier {
	for _, t := range e.Tiers {
		if t.ID == tierID {
			return t
		}
	}
	return nil
}

// HasBanner returns true if a banner has been uploaded
func (e *Event) HasBanner() bool {
	return e.BannerURL != "" && e.BannerKey != ""
}

// CanModerate returns nil if the event may move from PENDING to the given status
func (e *Event) CanModerate(to EventStatus) error {
	if e.Status != EventPending {
		return ErrInvalidTransition
	}
	if to != EventApproved && to != EventRejected {
		return ErrInvalidTransition
	}
	return nil
}

// CanCancel returns nil if the event may be cancelled
func (e *Event) CanCancel() error {
	if e.Status == EventCancelled || e.Status == EventRejected {
		return ErrInvalidTransition
	}
	return nil
}

// Matches reports whether the event satisfies the filter. Free text is matched
// case-insensitively against title and category.
func (e *Event) Matches(f EventFilter) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.OrganizerID != "" && e.OrganizerID != f.OrganizerID {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Category), q) {
			return false
		}
	}
	if f.From != nil && e.StartsAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.StartsAt.After(*f.To) {
		return false
	}
	return true
}

// Clone returns a deep copy so callers cannot mutate stored state
func (e *Event) Clone() *Event {
	c := *e
	c.Tiers = make([]*Tier, len(e.Tiers))
	for i, t := range e.Tiers {
		tc := *t
		c.Tiers[i] = &tc
	}
	return &c
}
