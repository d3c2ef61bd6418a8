package models

import (
	"encoding/json"
	"time"
)

// AuditLog represents an administrative action log entry
type AuditLog struct {
	ID         int64           `json:"id" db:"id"`
	ActorID    string          `json:"actor_id" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	TargetType string          `json:"target_type" db:"target_type"`
	TargetID   string          `json:"target_id" db:"target_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`

	ActorEmail string `json:"actor_email,omitempty"`
}

// AuditLogCreateRequest represents a request to create an audit log entry
type AuditLogCreateRequest struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Details    json.RawMessage
	IPAddress  string
	UserAgent  string
}

// AuditLogFilter narrows an audit log listing
type AuditLogFilter struct {
	Action     string
	TargetType string
	Limit      int
	Offset     int
}

// RequestMeta carries the caller details recorded with audited actions
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Audit actions
const (
	AuditActionEventApprove     = "event_approve"
	AuditActionEventReject      = "event_reject"
	AuditActionEventCancel      = "event_cancel"
	AuditActionOrganizerApprove = "organizer_approve"
	AuditActionOrganizerSuspend = "organizer_suspend"
	AuditActionTicketRefund     = "ticket_refund"
	AuditActionUserRoleChange   = "user_role_change"
)

// Audit target types
const (
	AuditTargetEvent     = "event"
	AuditTargetOrganizer = "organizer"
	AuditTargetTicket    = "ticket"
	AuditTargetUser      = "user"
)

// AdminStats summarizes marketplace state for the admin console
type AdminStats struct {
	EventsByStatus     map[EventStatus]int     `json:"events_by_status"`
	OrganizersByStatus map[OrganizerStatus]int `json:"organizers_by_status"`
	BookingsByStatus   map[BookingStatus]int   `json:"bookings_by_status"`
	GrossBooked        int64                   `json:"gross_booked"`
}
