package services

import (
	"context"
	"sync"
	"testing"

	"event-marketplace/internal/messaging"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refundFixture struct {
	store   *repositories.MemoryStore
	refunds *RefundService
	pub     *recordingPublisher
	event   *models.Event
	tier    *models.Tier
	receipt *models.Receipt
}

func newRefundFixture(t *testing.T, price int64) *refundFixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	event, tier := addEvent(t, store, models.EventApproved, price, 10)

	receipt, err := newReservationService(store, nil).Reserve(context.Background(), alice, event.ID, tier.ID)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	audit := NewAuditService(store, discardLogger())
	refunds := NewRefundService(store, store, audit, pub, discardLogger())
	refunds.now = fixedNow
	return &refundFixture{store: store, refunds: refunds, pub: pub, event: event, tier: tier, receipt: receipt}
}

func TestCancel_Refund(t *testing.T) {
	f := newRefundFixture(t, 999)
	require.Equal(t, 1, soldOf(t, f.store, f.event.ID, f.tier.ID))

	result, err := f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, alice, models.RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, int64(1044), result.Refund.Amount)
	assert.Equal(t, alice.ID, result.Refund.RequestedBy)
	assert.Equal(t, models.BookingRefunded, result.Booking.Status)
	assert.Equal(t, models.BookingRefunded, result.Ticket.Status)
	assert.Equal(t, 0, soldOf(t, f.store, f.event.ID, f.tier.ID))

	ticket, err := f.store.GetTicket(context.Background(), f.receipt.Ticket.ID)
	require.NoError(t, err)
	assert.True(t, ticket.IsRefunded())
	booking, err := f.store.GetBooking(context.Background(), f.receipt.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingRefunded, booking.Status)

	assert.Equal(t, []string{messaging.BookingRefunded}, f.pub.keys())

	// owners refunding their own ticket are not audited
	logs, total, err := f.store.ListAuditLogs(context.Background(), models.AuditLogFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, logs)
}

func TestCancel_SecondCancelIsRejected(t *testing.T) {
	f := newRefundFixture(t, 999)
	// another booking keeps sold above zero so a double release would show
	_, err := newReservationService(f.store, nil).Reserve(context.Background(), bob, f.event.ID, f.tier.ID)
	require.NoError(t, err)

	_, err = f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, alice, models.RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, 1, soldOf(t, f.store, f.event.ID, f.tier.ID))

	_, err = f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, alice, models.RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAlreadyRefunded)
	assert.Equal(t, 1, soldOf(t, f.store, f.event.ID, f.tier.ID))
}

func TestCancel_ConcurrentRefundsRefundOnce(t *testing.T) {
	f := newRefundFixture(t, 500)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, already int
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, alice, models.RequestMeta{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, models.ErrAlreadyRefunded):
				already++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, already)
	assert.Equal(t, 0, soldOf(t, f.store, f.event.ID, f.tier.ID))
}

func TestCancel_Authority(t *testing.T) {
	tests := []struct {
		name      string
		requester *models.User
		wantErr   error
		audited   bool
	}{
		{"owner", alice, nil, false},
		{"admin", admin, nil, true},
		{"event organiser", organiser, nil, true},
		{"other organiser", rival, models.ErrNotOwner, false},
		{"other user", bob, models.ErrNotOwner, false},
		{"anonymous", nil, models.ErrUnauthenticated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRefundFixture(t, 500)

			_, err := f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, tt.requester, models.RequestMeta{IPAddress: "10.0.0.1"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 1, soldOf(t, f.store, f.event.ID, f.tier.ID))
				return
			}
			require.NoError(t, err)

			logs, total, err := f.store.ListAuditLogs(context.Background(), models.AuditLogFilter{})
			require.NoError(t, err)
			if !tt.audited {
				assert.Zero(t, total)
				return
			}
			require.Len(t, logs, 1)
			assert.Equal(t, models.AuditActionTicketRefund, logs[0].Action)
			assert.Equal(t, tt.requester.ID, logs[0].ActorID)
			assert.Equal(t, f.receipt.Ticket.ID, logs[0].TargetID)
			assert.Equal(t, "10.0.0.1", logs[0].IPAddress)
		})
	}
}

func TestCancel_NotRefundable(t *testing.T) {
	t.Run("missing ticket", func(t *testing.T) {
		f := newRefundFixture(t, 500)
		_, err := f.refunds.Cancel(context.Background(), "missing", alice, models.RequestMeta{})
		assert.ErrorIs(t, err, models.ErrTicketNotFound)
	})

	t.Run("used ticket", func(t *testing.T) {
		f := newRefundFixture(t, 500)
		tickets := NewTicketService(f.store, f.store, nil, discardLogger())
		_, err := tickets.Redeem(context.Background(), f.receipt.Ticket.Code, organiser)
		require.NoError(t, err)

		_, err = f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, alice, models.RequestMeta{})
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.Equal(t, 1, soldOf(t, f.store, f.event.ID, f.tier.ID))
	})

	t.Run("contention", func(t *testing.T) {
		f := newRefundFixture(t, 500)
		f.refunds.bookings = &flakyBookings{MemoryStore: f.store, failures: 5}

		_, err := f.refunds.Cancel(context.Background(), f.receipt.Ticket.ID, alice, models.RequestMeta{})
		assert.ErrorIs(t, err, models.ErrContention)
		assert.Equal(t, 1, soldOf(t, f.store, f.event.ID, f.tier.ID))
	})
}
