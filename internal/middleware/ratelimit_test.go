package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(max, window)
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("ip:1.2.3.4")
		assert.True(t, ok, "attempt %d", i+1)
		clock.t = clock.t.Add(10 * time.Second)
	}

	ok, wait := rl.Allow("ip:1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	// other keys are unaffected
	ok, _ = rl.Allow("ip:5.6.7.8")
	assert.True(t, ok)

	// the first attempt slides out of the window
	clock.t = clock.t.Add(30 * time.Second)
	ok, _ = rl.Allow("ip:1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}

func TestRateLimit_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(user *models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/events/e1/bookings", nil)
		req.RemoteAddr = "198.51.100.1:1234"
		if user != nil {
			req = req.WithContext(SetUserContext(req.Context(), user))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	alice := &models.User{ID: "alice"}
	assert.Equal(t, http.StatusCreated, send(alice).Code)
	assert.Equal(t, http.StatusCreated, send(alice).Code)

	rr := send(alice)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests, please try again later"}`, rr.Body.String())

	// anonymous callers from the same address have their own bucket
	assert.Equal(t, http.StatusCreated, send(nil).Code)
}
