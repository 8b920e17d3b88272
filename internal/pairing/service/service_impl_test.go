package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	accountrepository "github.com/smallbiznis/tandem/internal/account/repository"
	accountservice "github.com/smallbiznis/tandem/internal/account/service"
	"github.com/smallbiznis/tandem/internal/clock"
	"github.com/smallbiznis/tandem/internal/config"
	goaldomain "github.com/smallbiznis/tandem/internal/goal/domain"
	goalrepository "github.com/smallbiznis/tandem/internal/goal/repository"
	goalservice "github.com/smallbiznis/tandem/internal/goal/service"
	invitationdomain "github.com/smallbiznis/tandem/internal/invitation/domain"
	invitationrepository "github.com/smallbiznis/tandem/internal/invitation/repository"
	invitationservice "github.com/smallbiznis/tandem/internal/invitation/service"
	"github.com/smallbiznis/tandem/internal/pairing/domain"
	"github.com/smallbiznis/tandem/internal/pairing/repository"
	"github.com/smallbiznis/tandem/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	conn    *gorm.DB
	clock   *clock.FakeClock
	invites invitationdomain.Service
	goals   goaldomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&accountdomain.Account{},
		&invitationdomain.TokenInvite{},
		&invitationdomain.PartnerCode{},
		&goaldomain.Goal{},
	))

	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	log := zap.NewNop()

	cfg := config.Config{
		BaseURL: "https://app.tandem.example",
		Invite: config.InviteConfig{
			TokenTTL:    7 * 24 * time.Hour,
			TokenLength: 12,
			CodeLength:  6,
		},
	}

	accounts := accountservice.New(accountservice.Params{
		DB:    conn,
		Log:   log,
		Clock: fakeClock,
		Repo:  accountrepository.Provide(),
	})
	invites := invitationservice.New(invitationservice.Params{
		DB:       conn,
		Log:      log,
		Clock:    fakeClock,
		GenID:    node,
		Cfg:      cfg,
		Repo:     invitationrepository.Provide(),
		Accounts: accounts,
	})
	goals := goalservice.New(goalservice.Params{
		DB:       conn,
		Log:      log,
		Clock:    fakeClock,
		GenID:    node,
		Repo:     goalrepository.Provide(),
		Accounts: accounts,
	})

	svc := &Service{
		db:       conn,
		log:      log,
		repo:     repository.Provide(),
		accounts: accounts,
		invites:  invites,
		goals:    goals,
	}
	return &fixture{svc: svc, conn: conn, clock: fakeClock, invites: invites, goals: goals}
}

func (f *fixture) partnerID(t *testing.T, userID string) *string {
	t.Helper()
	var account accountdomain.Account
	require.NoError(t, f.conn.Where("id = ?", userID).First(&account).Error)
	return account.PartnerID
}

func (f *fixture) requireLinked(t *testing.T, a, b string) {
	t.Helper()
	pa := f.partnerID(t, a)
	pb := f.partnerID(t, b)
	require.NotNil(t, pa)
	require.NotNil(t, pb)
	require.Equal(t, b, *pa)
	require.Equal(t, a, *pb)
}

func TestLinkCreatesSymmetricEdge(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))
	f.requireLinked(t, "alice", "bob")
}

func TestLinkIsIdempotent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))
	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))
	f.requireLinked(t, "alice", "bob")
}

func TestLinkRejectsSelf(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.svc.Link(context.Background(), "alice", "alice", nil), domain.ErrSelfInvite)
}

func TestLinkNamesBlockedSide(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))

	err := f.svc.Link(context.Background(), "alice", "carol", nil)
	require.ErrorIs(t, err, domain.ErrAlreadyPartnered)
	var blocked *domain.AlreadyPartneredError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "alice", blocked.UserID)

	err = f.svc.Link(context.Background(), "carol", "bob", nil)
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "bob", blocked.UserID)

	// carol stays untouched by the failed attempts
	require.Nil(t, f.partnerID(t, "carol"))
}

func TestLinkRepairsHalfBrokenEdge(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))
	require.NoError(t, f.conn.Model(&accountdomain.Account{}).
		Where("id = ?", "bob").
		Update("partner_id", nil).Error)

	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))
	f.requireLinked(t, "alice", "bob")
}

func TestLinkConsumesSuppliedInvite(t *testing.T) {
	f := newFixture(t)

	created, err := f.invites.Create(context.Background(), "alice")
	require.NoError(t, err)
	invite, err := f.invites.LookupByToken(context.Background(), created.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", invite))
	f.requireLinked(t, "alice", "bob")

	_, err = f.invites.LookupByToken(context.Background(), created.Token)
	require.ErrorIs(t, err, invitationdomain.ErrInvalidOrExpiredToken)
}

func TestRedeemByCode(t *testing.T) {
	f := newFixture(t)

	created, err := f.invites.Create(context.Background(), "alice")
	require.NoError(t, err)

	status, err := f.svc.Redeem(context.Background(), "bob", created.Code)
	require.NoError(t, err)
	require.True(t, status.Partnered)
	require.Equal(t, "alice", status.Partner.ID)
	f.requireLinked(t, "alice", "bob")

	// linking clears every pending invitation for both sides
	_, err = f.invites.Active(context.Background(), "alice")
	require.ErrorIs(t, err, invitationdomain.ErrNoActiveInvitation)
}

func TestRedeemByTokenIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)

	created, err := f.invites.Create(context.Background(), "alice")
	require.NoError(t, err)

	status, err := f.svc.Redeem(context.Background(), "bob", "  "+lower(created.Token)+" ")
	require.NoError(t, err)
	require.True(t, status.Partnered)
	f.requireLinked(t, "alice", "bob")
}

func TestRedeemRejectsOwnInvitation(t *testing.T) {
	f := newFixture(t)

	created, err := f.invites.Create(context.Background(), "alice")
	require.NoError(t, err)

	_, err = f.svc.Redeem(context.Background(), "alice", created.Code)
	require.ErrorIs(t, err, domain.ErrSelfInvite)

	// rejection happens before consumption; the code stays live
	_, err = f.invites.LookupByCode(context.Background(), created.Code)
	require.NoError(t, err)
}

func TestRedeemExactlyOnce(t *testing.T) {
	f := newFixture(t)

	created, err := f.invites.Create(context.Background(), "alice")
	require.NoError(t, err)

	_, err = f.svc.Redeem(context.Background(), "bob", created.Token)
	require.NoError(t, err)

	_, err = f.svc.Redeem(context.Background(), "carol", created.Token)
	require.ErrorIs(t, err, invitationdomain.ErrInvalidOrExpiredToken)
	require.Nil(t, f.partnerID(t, "carol"))
}

func TestRedeemExpiredToken(t *testing.T) {
	f := newFixture(t)

	created, err := f.invites.Create(context.Background(), "alice")
	require.NoError(t, err)

	f.clock.Advance(7*24*time.Hour + time.Hour)
	_, err = f.svc.Redeem(context.Background(), "bob", created.Token)
	require.ErrorIs(t, err, invitationdomain.ErrInvalidOrExpiredToken)
}

func TestUnlinkDetachesSharedGoals(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))

	mine, err := f.goals.Create(context.Background(), goaldomain.CreateRequest{OwnerID: "alice", Title: "trip"})
	require.NoError(t, err)
	_, err = f.goals.Share(context.Background(), "alice", mine.ID)
	require.NoError(t, err)

	theirs, err := f.goals.Create(context.Background(), goaldomain.CreateRequest{OwnerID: "bob", Title: "garden"})
	require.NoError(t, err)
	_, err = f.goals.Share(context.Background(), "bob", theirs.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Unlink(context.Background(), "alice"))

	require.Nil(t, f.partnerID(t, "alice"))
	require.Nil(t, f.partnerID(t, "bob"))
	for _, id := range []snowflake.ID{mine.ID, theirs.ID} {
		var g goaldomain.Goal
		require.NoError(t, f.conn.Where("id = ?", id).First(&g).Error)
		require.False(t, g.IsShared)
		require.Nil(t, g.PartnerID)
	}

	// running it again is harmless
	require.NoError(t, f.svc.Unlink(context.Background(), "alice"))
}

func TestUnlinkRepairsHalfBrokenEdge(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))
	require.NoError(t, f.conn.Model(&accountdomain.Account{}).
		Where("id = ?", "alice").
		Update("partner_id", nil).Error)

	// alice shows no partner but bob still points at her
	require.NoError(t, f.svc.Unlink(context.Background(), "alice"))
	require.Nil(t, f.partnerID(t, "bob"))
}

func TestUnlinkWithoutPartnerIsNoOp(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Unlink(context.Background(), "nobody"))
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	status, err := f.svc.Status(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, status.Partnered)
	require.Nil(t, status.Partner)

	require.NoError(t, f.svc.Link(context.Background(), "alice", "bob", nil))

	status, err = f.svc.Status(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, status.Partnered)
	require.Equal(t, "bob", status.Partner.ID)
}

// Full lifecycle: invite, redeem, re-invite blocked, replay blocked, unlink,
// invite again.
func TestPairingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.invites.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = f.svc.Redeem(ctx, "bob", created.Token)
	require.NoError(t, err)
	f.requireLinked(t, "alice", "bob")

	_, err = f.invites.Create(ctx, "alice")
	require.ErrorIs(t, err, invitationdomain.ErrAlreadyPartnered)

	_, err = f.svc.Redeem(ctx, "carol", created.Token)
	require.ErrorIs(t, err, invitationdomain.ErrInvalidOrExpiredToken)

	require.NoError(t, f.svc.Unlink(ctx, "bob"))

	_, err = f.invites.Create(ctx, "alice")
	require.NoError(t, err)
}

func TestSymmetryAfterOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Link(ctx, "alice", "bob", nil))
	require.NoError(t, f.svc.Unlink(ctx, "alice"))
	require.NoError(t, f.svc.Link(ctx, "alice", "carol", nil))

	var accounts []accountdomain.Account
	require.NoError(t, f.conn.Find(&accounts).Error)
	byID := make(map[string]accountdomain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, a := range accounts {
		if a.PartnerID == nil {
			continue
		}
		other, ok := byID[*a.PartnerID]
		require.True(t, ok)
		require.NotNil(t, other.PartnerID)
		require.Equal(t, a.ID, *other.PartnerID)
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
