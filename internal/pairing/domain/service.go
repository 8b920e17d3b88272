package domain

import (
	"context"
	"errors"

	invitationdomain "github.com/smallbiznis/tandem/internal/invitation/domain"
)

var (
	// ErrSelfInvite is returned when an account tries to partner itself,
	// directly or by redeeming its own invitation.
	ErrSelfInvite = errors.New("self_invite")

	ErrAlreadyPartnered = errors.New("already_partnered")

	// ErrAtomicLink covers any failure of the dual partner-pointer write.
	// Retrying is safe: an edge that was actually written short-circuits as
	// already linked.
	ErrAtomicLink = errors.New("atomic_link_failure")
)

// AlreadyPartneredError names which side of the attempted link is blocked,
// so the caller can say "you already have a partner" versus "the inviter
// already has a partner".
type AlreadyPartneredError struct {
	UserID string
}

func (e *AlreadyPartneredError) Error() string {
	return "already_partnered: " + e.UserID
}

func (e *AlreadyPartneredError) Unwrap() error { return ErrAlreadyPartnered }

// Partner is the slice of an account exposed to the other side.
type Partner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

type Status struct {
	Partnered bool     `json:"partnered"`
	Partner   *Partner `json:"partner,omitempty"`
}

type Service interface {
	// Link establishes the symmetric partner edge between the two accounts.
	// Idempotent: linking an already-linked pair succeeds. A supplied invite
	// is marked consumed best-effort as part of the operation.
	Link(ctx context.Context, inviterID, redeemerID string, consumed *invitationdomain.Invite) error

	// Redeem resolves value as a short code or token, consumes it exactly
	// once, and links the redeemer with the inviter.
	Redeem(ctx context.Context, redeemerID, value string) (*Status, error)

	// Unlink breaks the caller's partnership, detaching shared goals first.
	// Idempotent, and repairs half-broken edges where only one side still
	// points at the other.
	Unlink(ctx context.Context, userID string) error

	Status(ctx context.Context, userID string) (*Status, error)
}
