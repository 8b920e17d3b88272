package domain

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyPartnered rejects invitation creation by a linked account.
	ErrAlreadyPartnered = errors.New("already_partnered")
	// ErrInvalidOrExpiredToken covers absent, expired and consumed values
	// alike so callers cannot probe which of the three it was.
	ErrInvalidOrExpiredToken = errors.New("invalid_or_expired_token")
	// ErrNoActiveInvitation distinguishes "nothing to regenerate" from a
	// regeneration that itself failed.
	ErrNoActiveInvitation = errors.New("no_active_invitation")
)

type Service interface {
	// Create supersedes any pending invitation for the inviter and issues a
	// fresh token + short code pair.
	Create(ctx context.Context, inviterID string) (*CreatedInvite, error)
	// Regenerate replaces the inviter's current pending invitation;
	// ErrNoActiveInvitation when there is none.
	Regenerate(ctx context.Context, inviterID string) (*CreatedInvite, error)
	// Active returns the inviter's pending invitation for display.
	Active(ctx context.Context, inviterID string) (*CreatedInvite, error)

	LookupByToken(ctx context.Context, token string) (*Invite, error)
	LookupByCode(ctx context.Context, code string) (*Invite, error)
	// Lookup tries the short-code table first, then tokens.
	Lookup(ctx context.Context, value string) (*Invite, error)

	// Consume marks the invite redeemed. Exactly one of N concurrent
	// consumers succeeds; the rest get ErrInvalidOrExpiredToken.
	Consume(ctx context.Context, invite *Invite) error

	// Cleanup deletes the user's pending invitations. Best-effort: failures
	// are logged and swallowed, never surfaced to the caller.
	Cleanup(ctx context.Context, userID string)
}
