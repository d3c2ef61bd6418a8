package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"event-marketplace/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process implementation of every store used by the
// services. A single mutex serializes all access, so RunInTx behaves like a
// serializable transaction; writes made inside it are undone if fn fails.
type MemoryStore struct {
	mu sync.Mutex

	users      map[string]*models.User
	organizers map[string]*models.Organizer
	events     map[string]*models.Event
	bookings   map[string]*models.Booking
	tickets    map[string]*models.Ticket
	codes      map[string]string
	refunds    map[string]*models.Refund
	auditLogs  []*models.AuditLog
	nextAudit  int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      map[string]*models.User{},
		organizers: map[string]*models.Organizer{},
		events:     map[string]*models.Event{},
		bookings:   map[string]*models.Booking{},
		tickets:    map[string]*models.Ticket{},
		codes:      map[string]string{},
		refunds:    map[string]*models.Refund{},
	}
}

// SampleOrganizerID is the user id that owns the seeded sample events
const SampleOrganizerID = "sample-organizer"

// SeedSampleEvents loads an active organizer and three approved events
func (s *MemoryStore) SeedSampleEvents(now time.Time) []*models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[SampleOrganizerID] = &models.User{
		ID:            SampleOrganizerID,
		Email:         "organizer@example.com",
		DisplayName:   "Sample Organizer",
		Role:          models.RoleOrganiser,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	org := &models.Organizer{
		ID:         uuid.NewString(),
		UserID:     SampleOrganizerID,
		OrgName:    "Sample Productions",
		TaxID:      "ABCDE1234F",
		Status:     models.OrganizerActive,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.organizers[org.ID] = org

	samples := []struct {
		title, description, category, location string
		in                                     time.Duration
		tier                                   string
		price                                  int64
		quantity, sold                         int
	}{
		{"Saree, These Are Just Jokes!", "A stand-up comedy special about the quirks of life.", "Comedy Show", "Coimbatore", 30 * 24 * time.Hour, "Paid", 499, 200, 150},
		{"Moonwalk Musical Night", "A tribute night of film music and dance.", "Musics", "Chennai", 45 * 24 * time.Hour, "Standard", 999, 500, 120},
		{"Soulfest", "Pure sound in an architecturally designed auditorium.", "Concert", "Chennai", 60 * 24 * time.Hour, "General", 1500, 300, 45},
	}

	seeded := make([]*models.Event, 0, len(samples))
	for _, sample := range samples {
		eventID := uuid.NewString()
		reviewer := SampleOrganizerID
		event := &models.Event{
			ID:          eventID,
			OrganizerID: org.ID,
			OwnerID:     SampleOrganizerID,
			Title:       sample.title,
			Description: sample.description,
			Category:    sample.category,
			Location:    sample.location,
			StartsAt:    now.Add(sample.in).Truncate(time.Hour),
			Status:      models.EventApproved,
			ReviewedBy:  &reviewer,
			ReviewedAt:  &now,
			CreatedAt:   now,
			UpdatedAt:   now,
			Tiers: []*models.Tier{{
				ID:        uuid.NewString(),
				EventID:   eventID,
				Name:      sample.tier,
				Price:     sample.price,
				Quantity:  sample.quantity,
				Sold:      sample.sold,
				CreatedAt: now,
			}},
		}
		s.events[eventID] = event
		seeded = append(seeded, event.Clone())
	}
	return seeded
}

// RunInTx runs fn with the store locked and rolls back its writes on error
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Event catalog

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return event.Clone(), nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*models.Event{}
	for _, event := range s.events {
		if event.Matches(filter) {
			matched = append(matched, event)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartsAt.Equal(matched[j].StartsAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].StartsAt.Before(matched[j].StartsAt)
	})

	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return []*models.Event{}, nil
	}
	end := len(matched)
	if limit := snapshotLimit(filter.Limit); limit > 0 {
		end = min(offset+limit, end)
	}

	events := make([]*models.Event, 0, end-offset)
	for _, event := range matched[offset:end] {
		events = append(events, event.Clone())
	}
	return events, nil
}

func (s *MemoryStore) CreateEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("%w: event id", models.ErrDuplicateEntry)
	}
	stored := event.Clone()
	stored.UpdatedAt = stored.CreatedAt
	for _, tier := range stored.Tiers {
		tier.EventID = stored.ID
		tier.Sold = 0
	}
	s.events[stored.ID] = stored
	return nil
}

func (s *MemoryStore) UpdateEventDetails(ctx context.Context, event *models.Event, changes []models.TierQuantityChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.events[event.ID]
	if !ok || !stored.IsEditable() {
		return models.ErrInvalidTransition
	}
	for _, change := range changes {
		tier := stored.FindTier(change.TierID)
		if tier == nil {
			return models.ErrTierNotFound
		}
		if !tier.CanUpdateQuantity(change.Quantity) {
			return &models.ValidationError{Field: "tiers.quantity", Message: "quantity cannot be below tickets already sold"}
		}
	}

	stored.Title = event.Title
	stored.Description = event.Description
	stored.Category = event.Category
	stored.Location = event.Location
	stored.StartsAt = event.StartsAt
	stored.UpdatedAt = event.UpdatedAt
	for _, change := range changes {
		stored.FindTier(change.TierID).Quantity = change.Quantity
	}
	return nil
}

func (s *MemoryStore) ModerateEvent(ctx context.Context, eventID string, to models.EventStatus, reviewerID, reason string, at time.Time) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	if event.Status != models.EventPending {
		return nil, models.ErrInvalidTransition
	}
	event.Status = to
	event.ReviewedBy = &reviewerID
	event.ReviewedAt = &at
	event.RejectionReason = reason
	event.UpdatedAt = at
	return event.Clone(), nil
}

func (s *MemoryStore) CancelEvent(ctx context.Context, eventID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return 0, models.ErrEventNotFound
	}
	if !event.IsEditable() {
		return 0, models.ErrInvalidTransition
	}
	event.Status = models.EventCancelled
	event.UpdatedAt = at

	cancelled := 0
	for _, booking := range s.bookings {
		if booking.EventID == eventID && booking.Status == models.BookingBooked {
			booking.Status = models.BookingCancelled
			booking.UpdatedAt = at
			cancelled++
		}
	}
	for _, ticket := range s.tickets {
		if ticket.EventID == eventID && ticket.Status == models.BookingBooked {
			ticket.Status = models.BookingCancelled
		}
	}
	return cancelled, nil
}

func (s *MemoryStore) SetBanner(ctx context.Context, eventID, url, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return models.ErrEventNotFound
	}
	event.BannerURL = url
	event.BannerKey = key
	event.UpdatedAt = at
	return nil
}

// Bookings and tickets

func (s *MemoryStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	return cloneTicket(ticket), nil
}

func (s *MemoryStore) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.codes[code]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	return cloneTicket(s.tickets[id]), nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	b := *booking
	return &b, nil
}

func (s *MemoryStore) ListBookingsByUser(ctx context.Context, userID string) ([]*models.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	details := []*models.BookingDetail{}
	for _, ticket := range s.tickets {
		if ticket.UserID != userID {
			continue
		}
		booking := *s.bookings[ticket.BookingID]
		d := &models.BookingDetail{Booking: &booking, Ticket: cloneTicket(ticket)}
		if event, ok := s.events[ticket.EventID]; ok {
			d.EventTitle = event.Title
			d.EventLocation = event.Location
			d.EventStartsAt = event.StartsAt
			if tier := event.FindTier(ticket.TierID); tier != nil {
				d.TierName = tier.Name
			}
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].Booking.CreatedAt.After(details[j].Booking.CreatedAt)
	})
	return details, nil
}

// Users

func (s *MemoryStore) UpsertProfile(ctx context.Context, id models.Identity, at time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.users {
		if other.ID != id.Subject && strings.EqualFold(other.Email, id.Email) {
			return nil, fmt.Errorf("%w: email", models.ErrDuplicateEntry)
		}
	}

	user, ok := s.users[id.Subject]
	if !ok {
		user = &models.User{
			ID:          id.Subject,
			DisplayName: id.DefaultDisplayName(),
			Role:        models.RolePublic,
			CreatedAt:   at,
		}
		s.users[id.Subject] = user
	}
	user.Email = id.Email
	user.EmailVerified = id.EmailVerified
	user.PhoneVerified = id.PhoneVerified
	user.UpdatedAt = at
	u := *user
	return &u, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			u := *user
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *MemoryStore) UpdateDisplayName(ctx context.Context, id, name string, at time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	user.DisplayName = name
	user.UpdatedAt = at
	u := *user
	return &u, nil
}

func (s *MemoryStore) SetRole(ctx context.Context, id string, role models.UserRole, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.Role = role
	user.UpdatedAt = at
	return nil
}

// Organizers

func (s *MemoryStore) SaveOrganizer(ctx context.Context, org *models.Organizer) (*models.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.organizerByUser(org.UserID)
	if stored != nil && !stored.CanResubmit() {
		return nil, models.ErrDuplicateEntry
	}
	if stored == nil {
		stored = &models.Organizer{ID: org.ID, UserID: org.UserID, CreatedAt: org.CreatedAt}
		s.organizers[stored.ID] = stored
	}
	stored.OrgName = org.OrgName
	stored.TaxID = org.TaxID
	stored.Status = models.OrganizerPending
	stored.IsVerified = false
	stored.ReviewNote = ""
	stored.UpdatedAt = org.CreatedAt
	o := *stored
	return &o, nil
}

func (s *MemoryStore) GetOrganizer(ctx context.Context, id string) (*models.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.organizers[id]
	if !ok {
		return nil, models.ErrOrganizerNotFound
	}
	o := *org
	return &o, nil
}

func (s *MemoryStore) GetOrganizerByUser(ctx context.Context, userID string) (*models.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org := s.organizerByUser(userID)
	if org == nil {
		return nil, models.ErrOrganizerNotFound
	}
	o := *org
	return &o, nil
}

func (s *MemoryStore) organizerByUser(userID string) *models.Organizer {
	for _, org := range s.organizers {
		if org.UserID == userID {
			return org
		}
	}
	return nil
}

func (s *MemoryStore) ListOrganizers(ctx context.Context, status models.OrganizerStatus) ([]*models.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orgs := []*models.Organizer{}
	for _, org := range s.organizers {
		if status == "" || org.Status == status {
			o := *org
			orgs = append(orgs, &o)
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].CreatedAt.Before(orgs[j].CreatedAt) })
	return orgs, nil
}

func (s *MemoryStore) ReviewOrganizer(ctx context.Context, orgID string, status models.OrganizerStatus, note string, at time.Time) (*models.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.organizers[orgID]
	if !ok {
		return nil, models.ErrOrganizerNotFound
	}
	org.Status = status
	org.IsVerified = status == models.OrganizerActive
	org.ReviewNote = note
	org.UpdatedAt = at

	if user, ok := s.users[org.UserID]; ok {
		switch {
		case status == models.OrganizerActive && user.Role == models.RolePublic:
			user.Role = models.RoleOrganiser
			user.UpdatedAt = at
		case status != models.OrganizerActive && user.Role == models.RoleOrganiser:
			user.Role = models.RolePublic
			user.UpdatedAt = at
		}
	}
	o := *org
	return &o, nil
}

// Audit log and stats

func (s *MemoryStore) CreateAuditLog(ctx context.Context, req *models.AuditLogCreateRequest, at time.Time) (*models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAudit++
	entry := &models.AuditLog{
		ID:         s.nextAudit,
		ActorID:    req.ActorID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Details:    req.Details,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		CreatedAt:  at,
	}
	s.auditLogs = append(s.auditLogs, entry)
	e := *entry
	return &e, nil
}

func (s *MemoryStore) ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*models.AuditLog{}
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.TargetType != "" && entry.TargetType != filter.TargetType {
			continue
		}
		e := *entry
		if actor, ok := s.users[e.ActorID]; ok {
			e.ActorEmail = actor.Email
		}
		matched = append(matched, &e)
	}

	total := len(matched)
	offset := max(filter.Offset, 0)
	if offset >= total {
		return []*models.AuditLog{}, total, nil
	}
	end := min(offset+clampLimit(filter.Limit), total)
	return matched[offset:end], total, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*models.AdminStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &models.AdminStats{
		EventsByStatus:     map[models.EventStatus]int{},
		OrganizersByStatus: map[models.OrganizerStatus]int{},
		BookingsByStatus:   map[models.BookingStatus]int{},
	}
	for _, event := range s.events {
		stats.EventsByStatus[event.Status]++
	}
	for _, org := range s.organizers {
		stats.OrganizersByStatus[org.Status]++
	}
	for _, booking := range s.bookings {
		stats.BookingsByStatus[booking.Status]++
		if booking.Status == models.BookingBooked || booking.Status == models.BookingUsed {
			stats.GrossBooked += booking.Total
		}
	}
	return stats, nil
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	c := *t
	if t.UsedAt != nil {
		at := *t.UsedAt
		c.UsedAt = &at
	}
	return &c
}

// memTx applies writes directly to the store and keeps an undo log.
// The store mutex is held by RunInTx for its whole lifetime.
type memTx struct {
	s    *MemoryStore
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) tier(eventID, tierID string) *models.Tier {
	event, ok := t.s.events[eventID]
	if !ok {
		return nil
	}
	return event.FindTier(tierID)
}

func (t *memTx) IncrementSold(ctx context.Context, eventID, tierID string, count int) (*models.Tier, error) {
	event, ok := t.s.events[eventID]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	if !event.IsBookable() {
		return nil, models.ErrEventUnavailable
	}
	tier := t.tier(eventID, tierID)
	if tier == nil {
		return nil, models.ErrTierNotFound
	}
	if !tier.CanReserve(count) {
		return nil, models.ErrCapacityExceeded
	}
	prev := tier.Sold
	tier.Sold += count
	t.undo = append(t.undo, func() { tier.Sold = prev })
	c := *tier
	return &c, nil
}

func (t *memTx) DecrementSold(ctx context.Context, eventID, tierID string, count int) (*models.Tier, error) {
	tier := t.tier(eventID, tierID)
	if tier == nil {
		return nil, models.ErrTierNotFound
	}
	prev := tier.Sold
	tier.Release(count)
	t.undo = append(t.undo, func() { tier.Sold = prev })
	c := *tier
	return &c, nil
}

func (t *memTx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if _, exists := t.s.bookings[booking.ID]; exists {
		return fmt.Errorf("%w: booking id", models.ErrDuplicateEntry)
	}
	b := *booking
	t.s.bookings[b.ID] = &b
	t.undo = append(t.undo, func() { delete(t.s.bookings, b.ID) })
	return nil
}

func (t *memTx) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if _, taken := t.s.codes[ticket.Code]; taken {
		return fmt.Errorf("%w: ticket code collision", models.ErrTransient)
	}
	if _, exists := t.s.tickets[ticket.ID]; exists {
		return fmt.Errorf("%w: ticket id", models.ErrDuplicateEntry)
	}
	tk := cloneTicket(ticket)
	t.s.tickets[tk.ID] = tk
	t.s.codes[tk.Code] = tk.ID
	t.undo = append(t.undo, func() {
		delete(t.s.tickets, tk.ID)
		delete(t.s.codes, tk.Code)
	})
	return nil
}

func (t *memTx) LockTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, ok := t.s.tickets[ticketID]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	return cloneTicket(ticket), nil
}

func (t *memTx) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, ok := t.s.bookings[bookingID]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	b := *booking
	return &b, nil
}

func (t *memTx) SetBookingStatus(ctx context.Context, bookingID, ticketID string, status models.BookingStatus, at time.Time) error {
	booking, ok := t.s.bookings[bookingID]
	if !ok {
		return models.ErrBookingNotFound
	}
	ticket, ok := t.s.tickets[ticketID]
	if !ok {
		return models.ErrTicketNotFound
	}

	prevBooking := *booking
	prevTicket := *ticket
	booking.Status = status
	booking.UpdatedAt = at
	ticket.Status = status
	if status == models.BookingUsed {
		usedAt := at
		ticket.UsedAt = &usedAt
	}
	t.undo = append(t.undo, func() {
		*booking = prevBooking
		*ticket = prevTicket
	})
	return nil
}

func (t *memTx) CreateRefund(ctx context.Context, refund *models.Refund) error {
	if _, exists := t.s.refunds[refund.BookingID]; exists {
		return fmt.Errorf("%w: refund for booking", models.ErrDuplicateEntry)
	}
	r := *refund
	t.s.refunds[r.BookingID] = &r
	t.undo = append(t.undo, func() { delete(t.s.refunds, r.BookingID) })
	return nil
}
