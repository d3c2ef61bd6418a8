package services

import (
	"context"
	"testing"
	"time"

	"event-marketplace/internal/messaging"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type marketplace struct {
	store      *repositories.MemoryStore
	users      *UserService
	organizers *OrganizerService
	events     *EventService
	moderation *ModerationService
	catalog    *CatalogService
	reserve    *ReservationService
	pub        *recordingPublisher
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	store := repositories.NewMemoryStore()
	audit := NewAuditService(store, discardLogger())
	pub := &recordingPublisher{}
	m := &marketplace{
		store:      store,
		users:      NewUserService(store, audit, discardLogger()),
		organizers: NewOrganizerService(store, audit, discardLogger()),
		events:     NewEventService(store, store, audit, pub, discardLogger()),
		moderation: NewModerationService(store, audit, discardLogger()),
		catalog:    NewCatalogService(store, DefaultConvenienceFee),
		reserve:    newReservationService(store, nil),
		pub:        pub,
	}
	m.users.now = fixedNow
	m.organizers.now = fixedNow
	m.events.now = fixedNow
	m.moderation.now = fixedNow
	return m
}

func (m *marketplace) signIn(t *testing.T, subject, email string) *models.User {
	t.Helper()
	user, err := m.users.EnsureProfile(context.Background(), models.Identity{Subject: subject, Email: email, EmailVerified: true})
	require.NoError(t, err)
	return user
}

func (m *marketplace) reload(t *testing.T, user *models.User) *models.User {
	t.Helper()
	fresh, err := m.store.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	return fresh
}

// activeOrganiser signs in a user and takes them through KYC approval
func (m *marketplace) activeOrganiser(t *testing.T, boss *models.User) *models.User {
	t.Helper()
	user := m.signIn(t, "organiser-1", "organiser@example.com")
	org, err := m.organizers.SubmitKYC(context.Background(), user, &models.KYCRequest{OrgName: "Soul Productions", TaxID: "abcde1234f"})
	require.NoError(t, err)
	_, err = m.organizers.Approve(context.Background(), boss, org.ID, models.RequestMeta{})
	require.NoError(t, err)
	return m.reload(t, user)
}

func (m *marketplace) boss(t *testing.T) *models.User {
	t.Helper()
	user := m.signIn(t, "admin-1", "admin@example.com")
	_, err := m.users.PromoteToAdmin(context.Background(), user.Email)
	require.NoError(t, err)
	return m.reload(t, user)
}

func createRequest() *models.EventCreateRequest {
	return &models.EventCreateRequest{
		Title:       "Soulfest",
		Description: "Pure sound",
		Category:    "Concert",
		Location:    "Chennai",
		StartsAt:    testNow.Add(14 * 24 * time.Hour),
		Tiers: []models.TierCreateRequest{
			{Name: "General", Price: 1500, Quantity: 2},
			{Name: "VIP", Price: 4000, Quantity: 1},
		},
	}
}

func TestEventLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newMarketplace(t)
	boss := m.boss(t)
	owner := m.activeOrganiser(t, boss)
	require.Equal(t, models.RoleOrganiser, owner.Role)

	event, err := m.events.CreateEvent(ctx, owner, createRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EventPending, event.Status)
	require.Len(t, event.Tiers, 2)
	assert.Equal(t, 1, event.Tiers[1].Position)

	// pending events are not listed or bookable
	listed, err := m.catalog.ListEvents(ctx, models.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	_, err = m.reserve.Reserve(ctx, owner, event.ID, event.Tiers[0].ID)
	assert.ErrorIs(t, err, models.ErrEventUnavailable)

	pending, err := m.moderation.ListPending(ctx, boss, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := m.moderation.Approve(ctx, boss, event.ID, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.EventApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, boss.ID, *approved.ReviewedBy)

	_, err = m.moderation.Approve(ctx, boss, event.ID, models.RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	buyer := m.signIn(t, "buyer-1", "buyer@example.com")
	receipt, err := m.reserve.Reserve(ctx, buyer, event.ID, event.Tiers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1545), receipt.Booking.Total)

	// capacity cannot drop below what is sold
	update := &models.EventUpdateRequest{
		Title:    "Soulfest 2026",
		Category: "Concert",
		Location: "Chennai",
		StartsAt: event.StartsAt,
		Tiers:    []models.TierQuantityChange{{TierID: event.Tiers[0].ID, Quantity: 0}},
	}
	_, err = m.events.UpdateEvent(ctx, owner, event.ID, update)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	update.Tiers[0].Quantity = 1
	updated, err := m.events.UpdateEvent(ctx, owner, event.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Soulfest 2026", updated.Title)
	assert.Equal(t, models.EventApproved, updated.Status)
	assert.Equal(t, 1, updated.FindTier(event.Tiers[0].ID).Quantity)

	_, err = m.reserve.Reserve(ctx, buyer, event.ID, event.Tiers[0].ID)
	assert.ErrorIs(t, err, models.ErrSoldOut)

	mine, err := m.events.ListOrganizerEvents(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	cancellation, err := m.events.CancelEvent(ctx, boss, event.ID, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, cancellation.CancelledBookings)
	assert.Equal(t, []string{messaging.BookingCancelled}, m.pub.keys())

	ticket, err := m.store.GetTicket(ctx, receipt.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, ticket.Status)

	_, err = m.events.CancelEvent(ctx, owner, event.ID, models.RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = m.events.UpdateEvent(ctx, owner, event.ID, update)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	logs, _, err := m.store.ListAuditLogs(ctx, models.AuditLogFilter{TargetType: models.AuditTargetEvent})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionEventCancel, logs[0].Action)
	assert.Equal(t, models.AuditActionEventApprove, logs[1].Action)
}

func TestEventService_CreateEventRequiresActiveOrganizer(t *testing.T) {
	ctx := context.Background()
	m := newMarketplace(t)
	user := m.signIn(t, "u1", "u1@example.com")

	_, err := m.events.CreateEvent(ctx, user, createRequest())
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = m.organizers.SubmitKYC(ctx, user, &models.KYCRequest{OrgName: "Pending Org", TaxID: "ABCDE1234F"})
	require.NoError(t, err)
	_, err = m.events.CreateEvent(ctx, user, createRequest())
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = m.events.CreateEvent(ctx, nil, createRequest())
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestEventService_CreateEventValidation(t *testing.T) {
	m := newMarketplace(t)
	owner := m.activeOrganiser(t, m.boss(t))

	tests := []struct {
		name   string
		mutate func(*models.EventCreateRequest)
		field  string
	}{
		{"no title", func(r *models.EventCreateRequest) { r.Title = " " }, "title"},
		{"in the past", func(r *models.EventCreateRequest) { r.StartsAt = testNow.Add(-48 * time.Hour) }, "starts_at"},
		{"no tiers", func(r *models.EventCreateRequest) { r.Tiers = nil }, "tiers"},
		{"negative price", func(r *models.EventCreateRequest) { r.Tiers[0].Price = -1 }, "tiers.price"},
		{"zero quantity", func(r *models.EventCreateRequest) { r.Tiers[0].Quantity = 0 }, "tiers.quantity"},
		{"duplicate tier names", func(r *models.EventCreateRequest) { r.Tiers[1].Name = "general" }, "tiers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createRequest()
			tt.mutate(req)
			_, err := m.events.CreateEvent(context.Background(), owner, req)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestEventService_OwnershipChecks(t *testing.T) {
	ctx := context.Background()
	m := newMarketplace(t)
	boss := m.boss(t)
	owner := m.activeOrganiser(t, boss)
	event, err := m.events.CreateEvent(ctx, owner, createRequest())
	require.NoError(t, err)

	stranger := m.signIn(t, "stranger", "stranger@example.com")
	update := &models.EventUpdateRequest{Title: "x", Category: "c", Location: "l", StartsAt: event.StartsAt}

	_, err = m.events.UpdateEvent(ctx, stranger, event.ID, update)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = m.events.CancelEvent(ctx, stranger, event.ID, models.RequestMeta{})
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = m.events.UpdateEvent(ctx, owner, "missing", update)
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	// owners cancelling their own event are not audited
	_, err = m.events.CancelEvent(ctx, owner, event.ID, models.RequestMeta{})
	require.NoError(t, err)
	_, total, err := m.store.ListAuditLogs(ctx, models.AuditLogFilter{Action: models.AuditActionEventCancel})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestModerationService_Reject(t *testing.T) {
	ctx := context.Background()
	m := newMarketplace(t)
	boss := m.boss(t)
	owner := m.activeOrganiser(t, boss)
	event, err := m.events.CreateEvent(ctx, owner, createRequest())
	require.NoError(t, err)

	_, err = m.moderation.Reject(ctx, boss, event.ID, "  ", models.RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = m.moderation.Reject(ctx, owner, event.ID, "no", models.RequestMeta{})
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = m.moderation.ListPending(ctx, owner, 0, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)

	rejected, err := m.moderation.Reject(ctx, boss, event.ID, "missing venue permit", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.EventRejected, rejected.Status)
	assert.Equal(t, "missing venue permit", rejected.RejectionReason)

	_, err = m.events.CancelEvent(ctx, owner, event.ID, models.RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	logs, _, err := m.store.ListAuditLogs(ctx, models.AuditLogFilter{Action: models.AuditActionEventReject})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Contains(t, string(logs[0].Details), "missing venue permit")
}
