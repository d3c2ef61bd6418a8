package services

import "event-marketplace/internal/models"

// IssueTicket mints the ticket bound to a confirmed booking. The ticket
// mirrors the booking's owner, event, tier, status and creation time.
func IssueTicket(booking *models.Booking, ticketID, code string) *models.Ticket {
	return &models.Ticket{
		ID:        ticketID,
		BookingID: booking.ID,
		UserID:    booking.UserID,
		EventID:   booking.EventID,
		TierID:    booking.TierID,
		Code:      code,
		Status:    booking.Status,
		CreatedAt: booking.CreatedAt,
	}
}
