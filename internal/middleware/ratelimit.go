package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter keyed by caller
type RateLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a limiter allowing maxAttempts per window per key
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow records an attempt for key and reports whether it is within the limit.
// When it is not, it also returns how long until the oldest attempt expires.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	valid := pruned(rl.attempts[key], now.Add(-rl.window))
	if len(valid) >= rl.maxAttempts {
		rl.attempts[key] = valid
		return false, valid[0].Add(rl.window).Sub(now)
	}
	rl.attempts[key] = append(valid, now)
	return true, 0
}

func pruned(attempts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	return attempts[i:]
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup removes old entries periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}

		rl.mutex.Lock()
		cutoff := rl.now().Add(-rl.window)
		for key, attempts := range rl.attempts {
			if valid := pruned(attempts, cutoff); len(valid) == 0 {
				delete(rl.attempts, key)
			} else {
				rl.attempts[key] = valid
			}
		}
		rl.mutex.Unlock()
	}
}

// RateLimit limits requests per signed-in user, or per client IP for
// anonymous callers. Rejected requests get 429 with Retry-After.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ClientIP(r)
			if user := GetUserFromContext(r.Context()); user != nil {
				key = "user:" + user.ID
			}

			ok, wait := limiter.Allow(key)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeJSONError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
