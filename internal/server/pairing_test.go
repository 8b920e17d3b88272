package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	invitationdomain "github.com/smallbiznis/tandem/internal/invitation/domain"
	pairingdomain "github.com/smallbiznis/tandem/internal/pairing/domain"
)

type fakeInviteService struct {
	created     *invitationdomain.CreatedInvite
	createErr   error
	active      *invitationdomain.CreatedInvite
	activeErr   error
	lookupToken *invitationdomain.Invite
	lookupErr   error
}

func (f *fakeInviteService) Create(ctx context.Context, inviterID string) (*invitationdomain.CreatedInvite, error) {
	_ = ctx
	_ = inviterID
	return f.created, f.createErr
}

func (f *fakeInviteService) Regenerate(ctx context.Context, inviterID string) (*invitationdomain.CreatedInvite, error) {
	_ = ctx
	_ = inviterID
	return f.created, f.createErr
}

func (f *fakeInviteService) Active(ctx context.Context, inviterID string) (*invitationdomain.CreatedInvite, error) {
	_ = ctx
	_ = inviterID
	return f.active, f.activeErr
}

func (f *fakeInviteService) LookupByToken(ctx context.Context, token string) (*invitationdomain.Invite, error) {
	_ = ctx
	_ = token
	return f.lookupToken, f.lookupErr
}

func (f *fakeInviteService) LookupByCode(ctx context.Context, code string) (*invitationdomain.Invite, error) {
	_ = ctx
	_ = code
	return f.lookupToken, f.lookupErr
}

func (f *fakeInviteService) Lookup(ctx context.Context, value string) (*invitationdomain.Invite, error) {
	_ = ctx
	_ = value
	return f.lookupToken, f.lookupErr
}

func (f *fakeInviteService) Consume(ctx context.Context, invite *invitationdomain.Invite) error {
	_ = ctx
	_ = invite
	return nil
}

func (f *fakeInviteService) Cleanup(ctx context.Context, userID string) {
	_ = ctx
	_ = userID
}

type fakePairingService struct {
	redeemStatus *pairingdomain.Status
	redeemErr    error
	lastRedeemer string
	lastValue    string
	unlinkCalls  int
}

func (f *fakePairingService) Link(ctx context.Context, inviterID, redeemerID string, consumed *invitationdomain.Invite) error {
	_ = ctx
	_ = inviterID
	_ = redeemerID
	_ = consumed
	return nil
}

func (f *fakePairingService) Redeem(ctx context.Context, redeemerID, value string) (*pairingdomain.Status, error) {
	_ = ctx
	f.lastRedeemer = redeemerID
	f.lastValue = value
	return f.redeemStatus, f.redeemErr
}

func (f *fakePairingService) Unlink(ctx context.Context, userID string) error {
	_ = ctx
	_ = userID
	f.unlinkCalls++
	return nil
}

func (f *fakePairingService) Status(ctx context.Context, userID string) (*pairingdomain.Status, error) {
	_ = ctx
	_ = userID
	return f.redeemStatus, f.redeemErr
}

func newTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/pairing/invitations", withUser("alice"), srv.CreateInvitation)
	router.POST("/api/pairing/redeem", withUser("bob"), srv.RedeemInvitation)
	router.GET("/api/pairing", withUser("alice"), srv.PairingStatus)
	router.DELETE("/api/pairing", withUser("alice"), srv.Unlink)
	router.GET("/invite", srv.InviteLanding)
	return router
}

func withUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxUserID, id)
		c.Next()
	}
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestCreateInvitationHandler(t *testing.T) {
	invites := &fakeInviteService{
		created: &invitationdomain.CreatedInvite{
			Token: "ABCDEF123456",
			Code:  "XK29QT",
			URL:   "https://app.tandem.example/invite?token=ABCDEF123456",
		},
	}
	srv := &Server{inviteSvc: invites}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/pairing/invitations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var body invitationdomain.CreatedInvite
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Token != "ABCDEF123456" || body.Code != "XK29QT" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestCreateInvitationAlreadyPartnered(t *testing.T) {
	srv := &Server{inviteSvc: &fakeInviteService{createErr: invitationdomain.ErrAlreadyPartnered}}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/pairing/invitations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Error.Type != "already_partnered" {
		t.Fatalf("unexpected error type %q", body.Error.Type)
	}
}

func TestRedeemHandler(t *testing.T) {
	pairingSvc := &fakePairingService{
		redeemStatus: &pairingdomain.Status{
			Partnered: true,
			Partner:   &pairingdomain.Partner{ID: "alice", DisplayName: "Alice"},
		},
	}
	srv := &Server{pairingSvc: pairingSvc}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/pairing/redeem", bytes.NewBufferString(`{"value":"XK29QT"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if pairingSvc.lastRedeemer != "bob" || pairingSvc.lastValue != "XK29QT" {
		t.Fatalf("unexpected redeem call: %q %q", pairingSvc.lastRedeemer, pairingSvc.lastValue)
	}
}

func TestRedeemHandlerRequiresValue(t *testing.T) {
	pairingSvc := &fakePairingService{}
	srv := &Server{pairingSvc: pairingSvc}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/pairing/redeem", bytes.NewBufferString(`{"value":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if pairingSvc.lastValue != "" {
		t.Fatal("expected redeem not to be called")
	}
}

func TestRedeemHandlerErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"invalid token", invitationdomain.ErrInvalidOrExpiredToken, http.StatusNotFound, "invalid_or_expired_token"},
		{"self invite", pairingdomain.ErrSelfInvite, http.StatusBadRequest, "self_invite"},
		{"already partnered", &pairingdomain.AlreadyPartneredError{UserID: "bob"}, http.StatusConflict, "already_partnered"},
		{"atomic failure", pairingdomain.ErrAtomicLink, http.StatusInternalServerError, "atomic_link_failure"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := &Server{pairingSvc: &fakePairingService{redeemErr: tc.err}}
			router := newTestRouter(srv)

			req := httptest.NewRequest(http.MethodPost, "/api/pairing/redeem", bytes.NewBufferString(`{"value":"XK29QT"}`))
			req.Header.Set("Content-Type", "application/json")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, resp.Code)
			}
			if body := decodeError(t, resp); body.Error.Type != tc.wantType {
				t.Fatalf("expected error type %q, got %q", tc.wantType, body.Error.Type)
			}
		})
	}
}

func TestUnlinkHandler(t *testing.T) {
	pairingSvc := &fakePairingService{}
	srv := &Server{pairingSvc: pairingSvc}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodDelete, "/api/pairing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if pairingSvc.unlinkCalls != 1 {
		t.Fatalf("expected 1 unlink call, got %d", pairingSvc.unlinkCalls)
	}
}

func TestInviteLandingInvalidToken(t *testing.T) {
	srv := &Server{inviteSvc: &fakeInviteService{lookupErr: invitationdomain.ErrInvalidOrExpiredToken}}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/invite?token=NOPE", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if valid, _ := body["valid"].(bool); valid {
		t.Fatal("expected valid=false")
	}
}

func TestInviteLandingValidToken(t *testing.T) {
	expires := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	srv := &Server{
		inviteSvc: &fakeInviteService{
			lookupToken: &invitationdomain.Invite{
				Kind:      invitationdomain.KindToken,
				InviterID: "alice",
				Value:     "ABCDEF123456",
				ExpiresAt: &expires,
			},
		},
		accountSvc: &fakeAccountService{displayName: "Alice"},
	}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/invite?token=ABCDEF123456", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if valid, _ := body["valid"].(bool); !valid {
		t.Fatal("expected valid=true")
	}
}
