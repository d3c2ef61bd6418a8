package models

import "time"

// BookingStatus represents the lifecycle status of a booking and its ticket
type BookingStatus string

const (
	BookingBooked    BookingStatus = "BOOKED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingUsed      BookingStatus = "USED"
	BookingRefunded  BookingStatus = "REFUNDED"
)

// bookingTransitions lists the statuses reachable from each status.
// Every status other than BOOKED is terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingBooked: {BookingRefunded, BookingUsed, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another
func CanTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError returns the sentinel describing why from -> to is not allowed
func TransitionError(from, to BookingStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	if from == BookingRefunded && to == BookingRefunded {
		return ErrAlreadyRefunded
	}
	return ErrInvalidTransition
}

// Booking is a confirmed purchase of one ticket in one tier.
// Only Status ever changes after creation.
type Booking struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"user_id" db:"user_id"`
	EventID   string        `json:"event_id" db:"event_id"`
	TierID    string        `json:"tier_id" db:"tier_id"`
	Price     int64         `json:"price" db:"price"`
	Fee       int64         `json:"fee" db:"fee"`
	Total     int64         `json:"total" db:"total"`
	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// Refund records money owed back to a user for a refunded booking.
// Settlement happens outside this service.
type Refund struct {
	ID          string    `json:"id" db:"id"`
	BookingID   string    `json:"booking_id" db:"booking_id"`
	TicketID    string    `json:"ticket_id" db:"ticket_id"`
	Amount      int64     `json:"amount" db:"amount"`
	RequestedBy string    `json:"requested_by" db:"requested_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Quote is the result of the pricing step
type Quote struct {
	EventID   string `json:"event_id"`
	TierID    string `json:"tier_id"`
	TierName  string `json:"tier_name"`
	Price     int64  `json:"price"`
	Fee       int64  `json:"fee"`
	Total     int64  `json:"total"`
	Available int    `json:"available"`
}

// NewQuote prices one ticket of the tier with the given convenience fee
func NewQuote(tier *Tier, fee int64) *Quote {
	return &Quote{
		EventID:   tier.EventID,
		TierID:    tier.ID,
		TierName:  tier.Name,
		Price:     tier.Price,
		Fee:       fee,
		Total:     tier.Price + fee,
		Available: tier.Available(),
	}
}

// Receipt is returned by a successful reservation
type Receipt struct {
	Booking *Booking `json:"booking"`
	Ticket  *Ticket  `json:"ticket"`
}

// RefundResult is returned by a successful cancellation
type RefundResult struct {
	Booking *Booking `json:"booking"`
	Ticket  *Ticket  `json:"ticket"`
	Refund  *Refund  `json:"refund"`
}

// BookingDetail joins a booking with what a ticket holder needs to see
type BookingDetail struct {
	Booking       *Booking  `json:"booking"`
	Ticket        *Ticket   `json:"ticket"`
	EventTitle    string    `json:"event_title"`
	EventLocation string    `json:"event_location"`
	EventStartsAt time.Time `json:"event_starts_at"`
	TierName      string    `json:"tier_name"`
}

// ReservationStep names the stages a reservation passes through
type ReservationStep string

const (
	StepSelecting  ReservationStep = "SELECTING"
	StepPricing    ReservationStep = "PRICING"
	StepConfirming ReservationStep = "CONFIRMING"
	StepBooked     ReservationStep = "BOOKED"
	StepFailed     ReservationStep = "FAILED"
)
