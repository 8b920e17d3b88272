package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tandem/internal/account"
	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/config"
	"github.com/smallbiznis/tandem/internal/goal"
	goaldomain "github.com/smallbiznis/tandem/internal/goal/domain"
	"github.com/smallbiznis/tandem/internal/invitation"
	invitationdomain "github.com/smallbiznis/tandem/internal/invitation/domain"
	"github.com/smallbiznis/tandem/internal/observability"
	obsmiddleware "github.com/smallbiznis/tandem/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tandem/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tandem/internal/observability/tracing"
	"github.com/smallbiznis/tandem/internal/pairing"
	pairingdomain "github.com/smallbiznis/tandem/internal/pairing/domain"
	"github.com/smallbiznis/tandem/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	account.Module,
	invitation.Module,
	pairing.Module,
	goal.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config

	accountSvc accountdomain.Service
	inviteSvc  invitationdomain.Service
	pairingSvc pairingdomain.Service
	goalSvc    goaldomain.Service

	obsMetrics    *obsmetrics.Metrics
	redeemLimiter *ratelimit.RedeemLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	AccountSvc accountdomain.Service
	InviteSvc  invitationdomain.Service
	PairingSvc pairingdomain.Service
	GoalSvc    goaldomain.Service

	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
	RedeemLimiter *ratelimit.RedeemLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		accountSvc:    p.AccountSvc,
		inviteSvc:     p.InviteSvc,
		pairingSvc:    p.PairingSvc,
		goalSvc:       p.GoalSvc,
		obsMetrics:    p.ObsMetrics,
		redeemLimiter: p.RedeemLimiter,
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/invite", s.InviteLanding)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/me", s.GetMe)
	api.PATCH("/me", s.UpdateMe)
	api.POST("/me/onboarding", s.CompleteOnboarding)

	prt := api.Group("/pairing")
	prt.POST("/invitations", s.CreateInvitation)
	prt.POST("/invitations/regenerate", s.RegenerateInvitation)
	prt.GET("/invitations/current", s.CurrentInvitation)
	prt.GET("/invitations/qr", s.InvitationQR)
	prt.POST("/redeem", s.RedeemInvitation)
	prt.GET("", s.PairingStatus)
	prt.DELETE("", s.Unlink)

	goals := api.Group("/goals")
	goals.POST("", s.CreateGoal)
	goals.GET("", s.ListGoals)
	goals.POST("/:id/share", s.ShareGoal)
	goals.POST("/:id/complete", s.CompleteGoal)
}
