package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/santemut/vigie/internal/config"
	cotisationdomain "github.com/santemut/vigie/internal/cotisation/domain"
	directorydomain "github.com/santemut/vigie/internal/directory/domain"
	obsmetrics "github.com/santemut/vigie/internal/observability/metrics"
	scoringdomain "github.com/santemut/vigie/internal/scoring/domain"
	voucherdomain "github.com/santemut/vigie/internal/voucher/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Directory  directorydomain.Service
	Cotisation cotisationdomain.Service
	Scoring    scoringdomain.Service
	Vouchers   voucherdomain.Service
}

type Server struct {
	cfg           config.Config
	log           *zap.Logger
	directorySvc  directorydomain.Service
	cotisationSvc cotisationdomain.Service
	scoringSvc    scoringdomain.Service
	voucherSvc    voucherdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:           p.Config,
		log:           p.Log.Named("http.server"),
		directorySvc:  p.Directory,
		cotisationSvc: p.Cotisation,
		scoringSvc:    p.Scoring,
		voucherSvc:    p.Vouchers,
	}
}

func registerRoutes(s *Server, r *gin.Engine) {
	api := r.Group("/api/v1")

	api.POST("/members", s.CreateMember)
	api.GET("/members", s.ListMembers)
	api.GET("/members/:id", s.GetMember)
	api.PATCH("/members/:id/contact", s.UpdateMemberContact)
	api.POST("/members/:id/deactivate", s.DeactivateMember)

	api.POST("/agents", s.CreateAgent)
	api.GET("/agents/:id", s.GetAgent)
	api.PATCH("/agents/:id/voucher-limit", s.SetAgentVoucherLimit)
	api.POST("/agents/:id/deactivate", s.DeactivateAgent)

	api.POST("/members/:id/verifications", s.RecordVerification)
	api.GET("/members/:id/verifications", s.ListVerifications)
	api.GET("/members/:id/verifications/current", s.CurrentVerification)

	api.POST("/members/:id/scores", s.ScoreMember)
	api.GET("/members/:id/scores", s.ListScores)
	api.GET("/members/:id/scores/latest", s.LatestScore)
	api.GET("/members/:id/vouchers", s.ListMemberVouchers)

	api.POST("/scoring/rules", s.CreateScoringRule)
	api.GET("/scoring/rules", s.ListScoringRules)
	api.PATCH("/scoring/rules/:id", s.UpdateScoringRule)

	api.POST("/vouchers", s.IssueVoucher)
	api.GET("/vouchers/:code", s.GetVoucher)
	api.POST("/vouchers/:code/redeem", s.RedeemVoucher)
	api.POST("/vouchers/:code/status", s.SetVoucherStatus)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
