package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/config"
)

type fakeAccountService struct {
	displayName string
	lastUserID  string
}

func (f *fakeAccountService) EnsureProfile(ctx context.Context, userID string) (*accountdomain.Account, error) {
	_ = ctx
	f.lastUserID = userID
	return &accountdomain.Account{ID: userID, DisplayName: f.displayName}, nil
}

func (f *fakeAccountService) Get(ctx context.Context, userID string) (*accountdomain.Account, error) {
	_ = ctx
	return &accountdomain.Account{ID: userID, DisplayName: f.displayName}, nil
}

func (f *fakeAccountService) UpdateDisplayName(ctx context.Context, req accountdomain.UpdateDisplayNameRequest) (*accountdomain.Account, error) {
	_ = ctx
	return &accountdomain.Account{ID: req.UserID, DisplayName: req.DisplayName}, nil
}

func (f *fakeAccountService) CompleteOnboarding(ctx context.Context, userID string) (*accountdomain.Account, error) {
	_ = ctx
	return &accountdomain.Account{ID: userID, OnboardingComplete: true}, nil
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func newAuthRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/api/me", srv.AuthRequired(), srv.GetMe)
	return router
}

func TestAuthRequiredRejectsMissingHeader(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthJWTSecret: "secret"}}
	router := newAuthRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthRequiredRejectsWrongSecret(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthJWTSecret: "secret"}}
	router := newAuthRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "alice"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthRequiredPassesSubject(t *testing.T) {
	accounts := &fakeAccountService{displayName: "Alice"}
	srv := &Server{
		cfg:        config.Config{AuthJWTSecret: "secret"},
		accountSvc: accounts,
	}
	router := newAuthRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", "alice"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if accounts.lastUserID != "alice" {
		t.Fatalf("expected subject alice, got %q", accounts.lastUserID)
	}
}

func TestAuthRequiredRejectsEmptySubject(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthJWTSecret: "secret"}}
	router := newAuthRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", ""))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}
