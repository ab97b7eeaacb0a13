// Package idempotency tracks request keys in Redis so retried mutations are
// detected instead of re-executed.
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// State describes what is known about an idempotency key.
type State string

const (
	// StateNone means the key was unseen and is now claimed by the caller.
	StateNone State = ""
	// StateInProgress means another request holds the key but has not finished.
	StateInProgress State = "in_progress"
	// StateCompleted means a request with this key already succeeded.
	StateCompleted State = "completed"
)

// Idempotency claims and resolves request keys.
type Idempotency interface {
	// Acquire claims key for the caller. StateNone means the claim succeeded
	// and the caller should proceed; any other state means a duplicate.
	Acquire(ctx context.Context, key string, ttl time.Duration) (State, error)

	// MarkCompleted records that the operation behind key succeeded, keeping
	// the key for ttl so retries keep resolving to StateCompleted.
	MarkCompleted(ctx context.Context, key string, ttl time.Duration) error

	// Release drops a claim after the operation behind key failed, so the
	// client's retry with the same key can claim it again.
	Release(ctx context.Context, key string) error
}

// Redis implements Idempotency on a Redis client.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing Redis client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Acquire implements Idempotency with SET NX, so concurrent claims of the
// same key resolve to exactly one winner.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (State, error) {
	ok, err := r.client.SetNX(ctx, key, string(StateInProgress), ttl).Result()
	if err != nil {
		return StateNone, err
	}
	if ok {
		return StateNone, nil
	}

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			// Key expired between SetNX and Get; treat as in progress and let
			// the caller retry.
			return StateInProgress, nil
		}
		return StateNone, err
	}

	if State(val) == StateCompleted {
		return StateCompleted, nil
	}
	return StateInProgress, nil
}

// MarkCompleted implements Idempotency.
func (r *Redis) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Set(ctx, key, string(StateCompleted), ttl).Err()
}

// Release implements Idempotency. Only the Acquire winner calls it, so an
// unconditional delete cannot drop another request's completed marker.
func (r *Redis) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
