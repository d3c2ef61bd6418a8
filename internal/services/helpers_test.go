package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

var (
	alice     = &models.User{ID: "alice", Email: "alice@example.com", Role: models.RolePublic}
	bob       = &models.User{ID: "bob", Email: "bob@example.com", Role: models.RolePublic}
	organiser = &models.User{ID: "org-user", Email: "org@example.com", Role: models.RoleOrganiser}
	rival     = &models.User{ID: "rival-user", Email: "rival@example.com", Role: models.RoleOrganiser}
	admin     = &models.User{ID: "admin", Email: "admin@example.com", Role: models.RoleAdmin}
)

// addEvent stores an event owned by organiser with a single tier
func addEvent(t *testing.T, store *repositories.MemoryStore, status models.EventStatus, price int64, quantity int) (*models.Event, *models.Tier) {
	t.Helper()
	eventID := uuid.NewString()
	tier := &models.Tier{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Name:      "General",
		Price:     price,
		Quantity:  quantity,
		CreatedAt: testNow,
	}
	event := &models.Event{
		ID:          eventID,
		OrganizerID: "org-1",
		OwnerID:     organiser.ID,
		Title:       "Soulfest",
		Category:    "Concert",
		Location:    "Chennai",
		StartsAt:    testNow.Add(30 * 24 * time.Hour),
		Status:      status,
		CreatedAt:   testNow,
		Tiers:       []*models.Tier{tier},
	}
	require.NoError(t, store.CreateEvent(context.Background(), event))
	return event, tier
}

func soldOf(t *testing.T, store *repositories.MemoryStore, eventID, tierID string) int {
	t.Helper()
	event, err := store.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	tier := event.FindTier(tierID)
	require.NotNil(t, tier)
	return tier.Sold
}

func newReservationService(store *repositories.MemoryStore, pub Publisher, opts ...ReservationOption) *ReservationService {
	s := NewReservationService(store, store, pub, discardLogger(), opts...)
	s.now = fixedNow
	return s
}

type published struct {
	key string
	v   any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{key: key, v: v})
	return p.err
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		keys[i] = m.key
	}
	return keys
}

// flakyBookings fails the first failures transactions with a transient conflict
type flakyBookings struct {
	*repositories.MemoryStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyBookings) RunInTx(ctx context.Context, fn func(tx repositories.InventoryTx) error) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: serialization failure", models.ErrTransient)
	}
	return f.MemoryStore.RunInTx(ctx, fn)
}

type memIdempotency struct {
	mu       sync.Mutex
	entries  map[string]string
	beginErr error
	released []string
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{entries: map[string]string{}}
}

func (m *memIdempotency) Begin(ctx context.Context, userID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beginErr != nil {
		return "", m.beginErr
	}
	k := userID + ":" + key
	v, ok := m.entries[k]
	if !ok {
		m.entries[k] = "pending"
		return "", nil
	}
	if v == "pending" {
		return "", models.ErrRequestInProgress
	}
	return v, nil
}

func (m *memIdempotency) Complete(ctx context.Context, userID, key, ticketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID+":"+key] = ticketID
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID+":"+key)
	m.released = append(m.released, key)
	return nil
}

// cancellingCatalog cancels the event right after it has been read, so the
// reservation continues with a stale APPROVED copy.
type cancellingCatalog struct {
	*repositories.MemoryStore
}

func (c cancellingCatalog) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := c.MemoryStore.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := c.MemoryStore.CancelEvent(ctx, id, testNow); err != nil {
		return nil, err
	}
	return event, nil
}
