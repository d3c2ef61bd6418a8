package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"event-marketplace/internal/models"
	"event-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockCatalog) GetEvent(ctx context.Context, id string, viewer *models.User) (*models.Event, error) {
	args := m.Called(ctx, id, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockCatalog) Quote(ctx context.Context, eventID, tierID string) (*models.Quote, error) {
	args := m.Called(ctx, eventID, tierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *MockCatalog) OrganizerEvents(ctx context.Context, organizerID string) (*models.OrganizerEvents, error) {
	args := m.Called(ctx, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrganizerEvents), args.Error(1)
}

type MockReserver struct {
	mock.Mock
}

func (m *MockReserver) ReserveWithKey(ctx context.Context, user *models.User, eventID, tierID, key string) (*models.Receipt, bool, error) {
	args := m.Called(ctx, user, eventID, tierID, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Receipt), args.Bool(1), args.Error(2)
}

func eventRoutes(h *EventHandler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/api/events", h.ListEvents)
		r.Get("/api/events/{eventID}", h.GetEvent)
		r.Get("/api/events/{eventID}/tiers/{tierID}/quote", h.Quote)
		r.Get("/api/organizers/{organizerID}/events", h.OrganizerEvents)
		r.Post("/api/events/{eventID}/bookings", h.Book)
	}
}

func TestEventHandler_ListEvents(t *testing.T) {
	t.Run("query parameters become the filter", func(t *testing.T) {
		catalog := new(MockCatalog)
		from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 5, 31, 23, 59, 59, 999999999, time.UTC)
		catalog.On("ListEvents", mock.Anything, models.EventFilter{
			Category: "music",
			Query:    "jazz",
			From:     &from,
			To:       &to,
			Limit:    10,
		}).Return([]*models.Event{{ID: "e1", Title: "Jazz Night"}}, nil)

		router := newRouter(nil, eventRoutes(NewEventHandler(catalog, nil, discardLogger())))
		rr := serve(t, router, "GET", "/api/events?category=music&q=jazz&from=2026-05-01&to=2026-05-31&limit=10", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Events []*models.Event `json:"events"`
		}
		decodeBody(t, rr, &body)
		assert.Len(t, body.Events, 1)
		catalog.AssertExpectations(t)
	})

	t.Run("bad date", func(t *testing.T) {
		catalog := new(MockCatalog)
		router := newRouter(nil, eventRoutes(NewEventHandler(catalog, nil, discardLogger())))
		rr := serve(t, router, "GET", "/api/events?from=next-tuesday", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		catalog.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything)
	})
}

func TestEventHandler_GetEvent(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetEvent", mock.Anything, "e1", buyer).Return(&models.Event{ID: "e1"}, nil)
	catalog.On("GetEvent", mock.Anything, "hidden", buyer).Return(nil, models.ErrEventNotFound)

	router := newRouter(buyer, eventRoutes(NewEventHandler(catalog, nil, discardLogger())))

	assert.Equal(t, http.StatusOK, serve(t, router, "GET", "/api/events/e1", "").Code)
	rr := serve(t, router, "GET", "/api/events/hidden", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", errorCode(t, rr))
}

func TestEventHandler_Quote(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("Quote", mock.Anything, "e1", "t1").
		Return(&models.Quote{EventID: "e1", TierID: "t1", Price: 999, Fee: 45, Total: 1044, Available: 3}, nil)

	router := newRouter(nil, eventRoutes(NewEventHandler(catalog, nil, discardLogger())))
	rr := serve(t, router, "GET", "/api/events/e1/tiers/t1/quote", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	var quote models.Quote
	decodeBody(t, rr, &quote)
	assert.Equal(t, int64(1044), quote.Total)
}

func TestEventHandler_OrganizerEvents(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("OrganizerEvents", mock.Anything, "org-1").Return(&models.OrganizerEvents{
		OrganizerID: "org-1",
		Upcoming:    []*models.Event{{ID: "e2"}},
		Past:        []*models.Event{{ID: "e1"}},
	}, nil)

	router := newRouter(nil, eventRoutes(NewEventHandler(catalog, nil, discardLogger())))
	rr := serve(t, router, "GET", "/api/organizers/org-1/events", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	var body models.OrganizerEvents
	decodeBody(t, rr, &body)
	require.Len(t, body.Upcoming, 1)
	require.Len(t, body.Past, 1)
	assert.Equal(t, "e2", body.Upcoming[0].ID)
	assert.Equal(t, "e1", body.Past[0].ID)
}

func TestEventHandler_Book(t *testing.T) {
	receipt := &models.Receipt{
		Booking: &models.Booking{ID: "b1", Price: 1500, Fee: 45, Total: 1545, Status: models.BookingBooked},
		Ticket:  &models.Ticket{ID: "tk1", BookingID: "b1", Status: models.BookingBooked},
	}

	tests := []struct {
		name       string
		body       string
		key        string
		setup      func(m *MockReserver)
		wantStatus int
		wantCode   string
		replayed   bool
	}{
		{
			name: "booked",
			body: `{"tier_id":"t1"}`,
			key:  "key-1",
			setup: func(m *MockReserver) {
				m.On("ReserveWithKey", mock.Anything, buyer, "e1", "t1", "key-1").Return(receipt, false, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "replayed",
			body: `{"tier_id":"t1"}`,
			key:  "key-1",
			setup: func(m *MockReserver) {
				m.On("ReserveWithKey", mock.Anything, buyer, "e1", "t1", "key-1").Return(receipt, true, nil)
			},
			wantStatus: http.StatusOK,
			replayed:   true,
		},
		{
			name: "sold out",
			body: `{"tier_id":"t1"}`,
			setup: func(m *MockReserver) {
				m.On("ReserveWithKey", mock.Anything, buyer, "e1", "t1", "").
					Return(nil, false, &services.ReservationError{Step: models.StepConfirming, Err: models.ErrSoldOut})
			},
			wantStatus: http.StatusConflict,
			wantCode:   "sold_out",
		},
		{
			name: "in progress",
			body: `{"tier_id":"t1"}`,
			key:  "key-2",
			setup: func(m *MockReserver) {
				m.On("ReserveWithKey", mock.Anything, buyer, "e1", "t1", "key-2").Return(nil, false, models.ErrRequestInProgress)
			},
			wantStatus: http.StatusConflict,
			wantCode:   "request_in_progress",
		},
		{
			name:       "missing tier",
			body:       `{}`,
			setup:      func(m *MockReserver) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
		{
			name:       "unknown field",
			body:       `{"tier_id":"t1","quantity":4}`,
			setup:      func(m *MockReserver) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reserver := new(MockReserver)
			tt.setup(reserver)
			router := newRouter(buyer, eventRoutes(NewEventHandler(nil, reserver, discardLogger())))

			req := newJSONRequest("POST", "/api/events/e1/bookings", tt.body)
			if tt.key != "" {
				req.Header.Set("Idempotency-Key", tt.key)
			}
			rr := record(router, req)

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rr))
			}
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, "/api/tickets/tk1", rr.Header().Get("Location"))
			}
			if tt.replayed {
				assert.Equal(t, "true", rr.Header().Get("Idempotent-Replayed"))
			} else {
				assert.Empty(t, rr.Header().Get("Idempotent-Replayed"))
			}
			reserver.AssertExpectations(t)
		})
	}
}

func TestParseDateParam(t *testing.T) {
	got, err := parseDateParam("2026-05-01T18:00:00+03:00", true)
	assert.NoError(t, err)
	assert.Equal(t, 15, got.UTC().Hour())

	got, err = parseDateParam("", false)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
