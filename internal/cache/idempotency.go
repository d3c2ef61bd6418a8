// Package cache holds the Redis-backed helpers used by the booking API.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-marketplace/internal/models"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// pendingTTL bounds how long a claimed key blocks retries if the request
// holding it never completes or releases it.
const pendingTTL = 30 * time.Second

// IdempotencyStore remembers which ticket an Idempotency-Key produced so a
// retried POST returns the original receipt instead of booking twice.
type IdempotencyStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{redis: client, ttl: ttl}
}

func idempotencyKey(userID, key string) string {
	return fmt.Sprintf("idem:booking:%s:%s", userID, key)
}

// Begin claims key for userID. It returns the ticket id when the key has
// already completed, and ErrRequestInProgress while another request holds it.
// An empty id with a nil error means the caller owns the key.
func (s *IdempotencyStore) Begin(ctx context.Context, userID, key string) (string, error) {
	k := idempotencyKey(userID, key)

	claimed, err := s.redis.SetNX(ctx, k, pendingMarker, pendingTTL).Result()
	if err != nil {
		return "", fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		return "", nil
	}

	val, err := s.redis.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return s.Begin(ctx, userID, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return "", models.ErrRequestInProgress
	}
	return val, nil
}

// Complete records the ticket produced for key for the full retention period
func (s *IdempotencyStore) Complete(ctx context.Context, userID, key, ticketID string) error {
	if err := s.redis.Set(ctx, idempotencyKey(userID, key), ticketID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

// Release frees key after a failed attempt so the client may retry
func (s *IdempotencyStore) Release(ctx context.Context, userID, key string) error {
	if err := s.redis.Del(ctx, idempotencyKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
