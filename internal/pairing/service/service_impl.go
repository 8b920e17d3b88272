package service

import (
	"context"
	"errors"

	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	goaldomain "github.com/smallbiznis/tandem/internal/goal/domain"
	invitationdomain "github.com/smallbiznis/tandem/internal/invitation/domain"
	"github.com/smallbiznis/tandem/internal/observability/metrics"
	"github.com/smallbiznis/tandem/internal/pairing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Accounts accountdomain.Service
	Invites  invitationdomain.Service
	Goals    goaldomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// SharedResourceDetacher is the slice of the goal service unlinking needs:
// unshare everything between two users on the unlink transaction.
type SharedResourceDetacher interface {
	DetachShared(ctx context.Context, tx *gorm.DB, userA, userB string) error
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	accounts accountdomain.Service
	invites  invitationdomain.Service
	goals    SharedResourceDetacher
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("pairing.service"),
		repo:     p.Repo,
		accounts: p.Accounts,
		invites:  p.Invites,
		goals:    p.Goals,
		metrics:  p.Metrics,
	}
}

// Link runs the pairing state machine. Preconditions are checked in order,
// each terminal: self link, profile existence, current partner pointers.
// The dual pointer write is a single transaction; anything that fails inside
// it surfaces as ErrAtomicLink.
func (s *Service) Link(ctx context.Context, inviterID, redeemerID string, consumed *invitationdomain.Invite) error {
	if inviterID == redeemerID {
		s.metrics.RecordLink(ctx, "self_invite")
		return domain.ErrSelfInvite
	}

	inviter, err := s.accounts.EnsureProfile(ctx, inviterID)
	if err != nil {
		s.metrics.RecordLink(ctx, "profile_failure")
		return err
	}
	redeemer, err := s.accounts.EnsureProfile(ctx, redeemerID)
	if err != nil {
		s.metrics.RecordLink(ctx, "profile_failure")
		return err
	}

	if inviter.PartneredWith(redeemer.ID) && redeemer.PartneredWith(inviter.ID) {
		// Retried call after a success, e.g. a client resend on timeout.
		s.finish(ctx, inviter.ID, redeemer.ID, consumed)
		s.metrics.RecordLink(ctx, "already_linked")
		return nil
	}
	if inviter.HasPartner() && !inviter.PartneredWith(redeemer.ID) {
		s.metrics.RecordLink(ctx, "already_partnered")
		return &domain.AlreadyPartneredError{UserID: inviter.ID}
	}
	if redeemer.HasPartner() && !redeemer.PartneredWith(inviter.ID) {
		s.metrics.RecordLink(ctx, "already_partnered")
		return &domain.AlreadyPartneredError{UserID: redeemer.ID}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setEdge(ctx, tx, inviter.ID, redeemer.ID); err != nil {
			return err
		}
		return s.setEdge(ctx, tx, redeemer.ID, inviter.ID)
	})
	if err != nil {
		s.log.Error("atomic partner link failed",
			zap.String("inviter_id", inviter.ID),
			zap.String("redeemer_id", redeemer.ID),
			zap.Error(err),
		)
		s.metrics.RecordLink(ctx, "atomic_failure")
		return domain.ErrAtomicLink
	}

	s.finish(ctx, inviter.ID, redeemer.ID, consumed)
	s.verify(ctx, inviter.ID, redeemer.ID)
	s.metrics.RecordLink(ctx, "linked")
	return nil
}

func (s *Service) Redeem(ctx context.Context, redeemerID, value string) (*domain.Status, error) {
	invite, err := s.invites.Lookup(ctx, value)
	if err != nil {
		s.metrics.RecordRedemption(ctx, "unknown", "not_found")
		return nil, err
	}
	kind := string(invite.Kind)

	if invite.InviterID == redeemerID {
		s.metrics.RecordRedemption(ctx, kind, "self_invite")
		return nil, domain.ErrSelfInvite
	}

	// Consume before linking: of N concurrent redeemers exactly one wins the
	// flag, and the losers see the invitation as gone.
	if err := s.invites.Consume(ctx, invite); err != nil {
		s.metrics.RecordRedemption(ctx, kind, "consume_lost")
		return nil, err
	}

	if err := s.Link(ctx, invite.InviterID, redeemerID, nil); err != nil {
		s.metrics.RecordRedemption(ctx, kind, "link_failed")
		return nil, err
	}

	s.metrics.RecordRedemption(ctx, kind, "linked")
	return s.Status(ctx, redeemerID)
}

// Unlink breaks the caller's partnership. The partner is taken from the
// caller's own pointer, falling back to a reverse scan so a half-broken edge
// left by an interrupted unlink is still cleaned up.
func (s *Service) Unlink(ctx context.Context, userID string) error {
	account, err := s.repo.Find(ctx, s.db, userID)
	if err != nil {
		return err
	}

	var partnerID string
	if account != nil && account.PartnerID != nil {
		partnerID = *account.PartnerID
	} else {
		other, err := s.repo.FindPartnerOf(ctx, s.db, userID)
		if err != nil {
			return err
		}
		if other == nil {
			return nil
		}
		partnerID = other.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.goals.DetachShared(ctx, tx, userID, partnerID); err != nil {
			return err
		}
		if _, err := s.repo.ClearPartner(ctx, tx, userID, partnerID); err != nil {
			return err
		}
		_, err := s.repo.ClearPartner(ctx, tx, partnerID, userID)
		return err
	})
	if err != nil {
		s.log.Error("unlink failed",
			zap.String("user_id", userID),
			zap.String("partner_id", partnerID),
			zap.Error(err),
		)
		return err
	}

	s.metrics.RecordUnlink(ctx)
	return nil
}

func (s *Service) Status(ctx context.Context, userID string) (*domain.Status, error) {
	account, err := s.accounts.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.HasPartner() {
		return &domain.Status{}, nil
	}

	partner, err := s.accounts.Get(ctx, *account.PartnerID)
	if errors.Is(err, accountdomain.ErrNotFound) {
		s.log.Warn("partner pointer references missing account",
			zap.String("user_id", userID),
			zap.String("partner_id", *account.PartnerID),
		)
		return &domain.Status{Partnered: true, Partner: &domain.Partner{ID: *account.PartnerID}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Status{
		Partnered: true,
		Partner:   &domain.Partner{ID: partner.ID, DisplayName: partner.DisplayName},
	}, nil
}

// setEdge is a guarded write: it only succeeds against a NULL pointer. A miss
// is tolerated when the pointer already holds the expected partner (the other
// half of a previously interrupted link); anything else aborts the
// transaction.
func (s *Service) setEdge(ctx context.Context, tx *gorm.DB, userID, partnerID string) error {
	won, err := s.repo.SetPartner(ctx, tx, userID, partnerID)
	if err != nil {
		return err
	}
	if won {
		return nil
	}

	account, err := s.repo.Find(ctx, tx, userID)
	if err != nil {
		return err
	}
	if account != nil && account.PartneredWith(partnerID) {
		return nil
	}
	return domain.ErrAtomicLink
}

// finish consumes the supplied invite and clears pending invitations for both
// sides. All of it is best-effort: the edge is already written.
func (s *Service) finish(ctx context.Context, inviterID, redeemerID string, consumed *invitationdomain.Invite) {
	if consumed != nil {
		if err := s.invites.Consume(ctx, consumed); err != nil &&
			!errors.Is(err, invitationdomain.ErrInvalidOrExpiredToken) {
			s.log.Warn("invite consume after link failed",
				zap.String("inviter_id", inviterID),
				zap.Error(err),
			)
		}
	}
	s.invites.Cleanup(ctx, inviterID)
	s.invites.Cleanup(ctx, redeemerID)
}

// verify re-reads both sides after the write. A mismatch means something
// outside this call raced the edge; the link itself still stands, but
// operators need to know.
func (s *Service) verify(ctx context.Context, inviterID, redeemerID string) {
	inviter, errA := s.repo.Find(ctx, s.db, inviterID)
	redeemer, errB := s.repo.Find(ctx, s.db, redeemerID)
	if errA != nil || errB != nil {
		s.log.Warn("post-link verification read failed",
			zap.NamedError("inviter_err", errA),
			zap.NamedError("redeemer_err", errB),
		)
		return
	}

	symmetric := inviter != nil && redeemer != nil &&
		inviter.PartneredWith(redeemer.ID) && redeemer.PartneredWith(inviter.ID)
	if !symmetric {
		s.log.Error("post-link verification found asymmetric edge",
			zap.String("inviter_id", inviterID),
			zap.String("redeemer_id", redeemerID),
		)
		s.metrics.RecordVerificationMismatch(ctx)
	}
}
