package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidUserID      = errors.New("invalid_user_id")
	ErrInvalidDisplayName = errors.New("invalid_display_name")
	ErrNotFound           = errors.New("not_found")
	// ErrProfileCreation is terminal: the guarantor exhausted its retries.
	ErrProfileCreation = errors.New("profile_creation_failure")
)

// RetryPolicy bounds the guarantor's read-create-backoff loop. Backoff is
// indexed by retry number; the last entry repeats if attempts exceed it.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultRetryPolicy matches the window in which concurrent first-login
// requests for the same identity settle.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: []time.Duration{
			300 * time.Millisecond,
			600 * time.Millisecond,
			900 * time.Millisecond,
		},
	}
}

// Wait returns the backoff before retry attempt i (zero-based).
func (p RetryPolicy) Wait(i int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if i >= len(p.Backoff) {
		i = len(p.Backoff) - 1
	}
	if i < 0 {
		i = 0
	}
	return p.Backoff[i]
}

// Sleeper blocks for the given duration or until the context is done.
// Injectable so tests never sleep for real.
type Sleeper func(ctx context.Context, d time.Duration) error

type UpdateDisplayNameRequest struct {
	UserID      string
	DisplayName string
}

type Service interface {
	// EnsureProfile guarantees a profile row exists for the identity,
	// creating it when absent. Safe to call concurrently for the same
	// identity; races resolve through backoff and re-read.
	EnsureProfile(ctx context.Context, userID string) (*Account, error)
	Get(ctx context.Context, userID string) (*Account, error)
	UpdateDisplayName(ctx context.Context, req UpdateDisplayNameRequest) (*Account, error)
	CompleteOnboarding(ctx context.Context, userID string) (*Account, error)
}
