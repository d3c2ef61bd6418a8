package services

import (
	"context"
	"strings"
	"testing"

	"event-marketplace/internal/messaging"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketService_Redeem(t *testing.T) {
	store := repositories.NewMemoryStore()
	event, tier := addEvent(t, store, models.EventApproved, 500, 10)
	receipt, err := newReservationService(store, nil).Reserve(context.Background(), alice, event.ID, tier.ID)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	svc := NewTicketService(store, store, pub, discardLogger())
	svc.now = fixedNow

	code := receipt.Ticket.Code
	mistyped := code[:len(code)-1] + "A"
	if strings.HasSuffix(code, "A") {
		mistyped = code[:len(code)-1] + "B"
	}
	tests := []struct {
		name    string
		code    string
		scanner *models.User
		wantErr error
	}{
		{"anonymous", code, nil, models.ErrUnauthenticated},
		{"public user", code, bob, models.ErrForbidden},
		{"organiser of another event", code, rival, models.ErrForbidden},
		{"mistyped code", mistyped, organiser, models.ErrInvalidTicketCode},
		{"garbage", "hello", organiser, models.ErrInvalidTicketCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Redeem(context.Background(), tt.code, tt.scanner)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// scanners may type the code in lower case with spaces
	redeemed, err := svc.Redeem(context.Background(), "  "+strings.ToLower(code)+" ", organiser)
	require.NoError(t, err)
	assert.Equal(t, models.BookingUsed, redeemed.Status)
	require.NotNil(t, redeemed.UsedAt)
	assert.Equal(t, testNow, *redeemed.UsedAt)

	booking, err := store.GetBooking(context.Background(), receipt.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingUsed, booking.Status)
	assert.Equal(t, []string{messaging.TicketRedeemed}, pub.keys())

	_, err = svc.Redeem(context.Background(), code, admin)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestTicketService_RedeemRefundedTicket(t *testing.T) {
	f := newRefundFixture(t, 500)
	_, err := f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, alice, models.RequestMeta{})
	require.NoError(t, err)

	svc := NewTicketService(f.store, f.store, nil, discardLogger())
	_, err = svc.Redeem(context.Background(), f.receipt.Ticket.Code, organiser)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestTicketService_RedeemOnCancelledEvent(t *testing.T) {
	store := repositories.NewMemoryStore()
	event, tier := addEvent(t, store, models.EventApproved, 500, 10)
	receipt, err := newReservationService(store, nil).Reserve(context.Background(), alice, event.ID, tier.ID)
	require.NoError(t, err)
	_, err = store.CancelEvent(context.Background(), event.ID, testNow)
	require.NoError(t, err)

	svc := NewTicketService(store, store, nil, discardLogger())
	_, err = svc.Redeem(context.Background(), receipt.Ticket.Code, organiser)
	assert.ErrorIs(t, err, models.ErrEventUnavailable)
}

func TestTicketService_GetTicket(t *testing.T) {
	store := repositories.NewMemoryStore()
	event, tier := addEvent(t, store, models.EventApproved, 500, 10)
	receipt, err := newReservationService(store, nil).Reserve(context.Background(), alice, event.ID, tier.ID)
	require.NoError(t, err)
	svc := NewTicketService(store, store, nil, discardLogger())

	tests := []struct {
		name      string
		requester *models.User
		wantErr   error
	}{
		{"owner", alice, nil},
		{"event organiser", organiser, nil},
		{"admin", admin, nil},
		{"other user", bob, models.ErrNotOwner},
		{"other organiser", rival, models.ErrNotOwner},
		{"anonymous", nil, models.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := svc.GetTicket(context.Background(), receipt.Ticket.ID, tt.requester)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, receipt.Ticket.Code, ticket.Code)
		})
	}

	_, err = svc.GetTicket(context.Background(), "missing", alice)
	assert.ErrorIs(t, err, models.ErrTicketNotFound)
}

func TestTicketService_ListMyTickets(t *testing.T) {
	store := repositories.NewMemoryStore()
	event, tier := addEvent(t, store, models.EventApproved, 500, 10)
	reservations := newReservationService(store, nil)
	for i := 0; i < 3; i++ {
		_, err := reservations.Reserve(context.Background(), alice, event.ID, tier.ID)
		require.NoError(t, err)
	}
	_, err := reservations.Reserve(context.Background(), bob, event.ID, tier.ID)
	require.NoError(t, err)

	svc := NewTicketService(store, store, nil, discardLogger())
	mine, err := svc.ListMyTickets(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	for _, d := range mine {
		assert.Equal(t, alice.ID, d.Ticket.UserID)
		assert.Equal(t, event.Title, d.EventTitle)
		assert.Equal(t, tier.Name, d.TierName)
	}

	_, err = svc.ListMyTickets(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
