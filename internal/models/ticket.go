package models

import "time"

// Ticket is the scannable artifact issued for exactly one booking.
// Its status mirrors the booking and codes are never reused.
type Ticket struct {
	ID        string        `json:"id" db:"id"`
	BookingID string        `json:"booking_id" db:"booking_id"`
	UserID    string        `json:"user_id" db:"user_id"`
	EventID   string        `json:"event_id" db:"event_id"`
	TierID    string        `json:"tier_id" db:"tier_id"`
	Code      string        `json:"code" db:"code"`
	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UsedAt    *time.Time    `json:"used_at,omitempty" db:"used_at"`
}

// IsActive returns true if the ticket can still be used or refunded
func (t *Ticket) IsActive() bool {
	return t.Status == BookingBooked
}

// IsRefunded returns true if the ticket has been refunded
func (t *Ticket) IsRefunded() bool {
	return t.Status == BookingRefunded
}

// CanBeUsed returns true if the ticket can be scanned at the door
func (t *Ticket) CanBeUsed() bool {
	return CanTransition(t.Status, BookingUsed)
}

// CanBeRefunded returns nil if the ticket can be refunded, or the reason it cannot
func (t *Ticket) CanBeRefunded() error {
	return TransitionError(t.Status, BookingRefunded)
}
