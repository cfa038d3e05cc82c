// Package server exposes the HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/invoicemonk/invoicemonk/internal/audit/domain"
	businessdomain "github.com/invoicemonk/invoicemonk/internal/business/domain"
	clientdomain "github.com/invoicemonk/invoicemonk/internal/client/domain"
	"github.com/invoicemonk/invoicemonk/internal/config"
	invoicedomain "github.com/invoicemonk/invoicemonk/internal/invoice/domain"
	subscriptiondomain "github.com/invoicemonk/invoicemonk/internal/subscription/domain"
	taxdomain "github.com/invoicemonk/invoicemonk/internal/tax/domain"
	templatedomain "github.com/invoicemonk/invoicemonk/internal/template/domain"
	verificationdomain "github.com/invoicemonk/invoicemonk/internal/verification/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestContextMiddleware())
	r.Use(RequestLoggingMiddleware(log))
	r.Use(ErrorHandlingMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	genID           *snowflake.Node
	businessSvc     businessdomain.Service
	clientSvc       clientdomain.Service
	invoiceSvc      invoicedomain.Service
	taxSvc          taxdomain.Service
	templateSvc     templatedomain.Service
	subscriptionSvc subscriptiondomain.Service
	auditSvc        auditdomain.Service
	verificationSvc verificationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	GenID           *snowflake.Node
	BusinessSvc     businessdomain.Service
	ClientSvc       clientdomain.Service
	InvoiceSvc      invoicedomain.Service
	TaxSvc          taxdomain.Service
	TemplateSvc     templatedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	AuditSvc        auditdomain.Service
	VerificationSvc verificationdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("server"),
		genID:           p.GenID,
		businessSvc:     p.BusinessSvc,
		clientSvc:       p.ClientSvc,
		invoiceSvc:      p.InvoiceSvc,
		taxSvc:          p.TaxSvc,
		templateSvc:     p.TemplateSvc,
		subscriptionSvc: p.SubscriptionSvc,
		auditSvc:        p.AuditSvc,
		verificationSvc: p.VerificationSvc,
	}

	s.registerPublicRoutes()
	s.registerAPIRoutes()
	return s
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/v1/verify/:verification_id", s.VerifyRecord)
	s.engine.POST("/v1/webhooks/subscription", s.SubscriptionWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1", s.AuthMiddleware())

	api.POST("/businesses", s.CreateBusiness)

	business := api.Group("/businesses/:business_id", RequireBusinessAccess())
	business.GET("", s.GetBusiness)
	business.PATCH("", s.UpdateBusiness)
	business.GET("/subscription", s.GetSubscription)
	business.GET("/audit-logs", s.ListAuditLogs)

	business.POST("/clients", s.CreateClient)
	business.GET("/clients", s.ListClients)
	business.GET("/clients/:client_id", s.GetClient)
	business.PATCH("/clients/:client_id", s.UpdateClient)
	business.DELETE("/clients/:client_id", s.DeleteClient)

	business.POST("/tax-schemas", s.RegisterTaxSchema)

	business.POST("/templates", s.CreateTemplate)
	business.GET("/templates", s.ListTemplates)
	business.GET("/templates/:template_id", s.GetTemplate)

	business.POST("/invoices", s.CreateDraftInvoice)
	business.GET("/invoices", s.ListInvoices)
	business.GET("/invoices/:invoice_id", s.GetInvoice)
	business.PUT("/invoices/:invoice_id", s.UpdateDraftInvoice)
	business.DELETE("/invoices/:invoice_id", s.DeleteDraftInvoice)
	business.POST("/invoices/:invoice_id/issue", s.IssueInvoice)
	business.POST("/invoices/:invoice_id/send", s.SendInvoice)
	business.POST("/invoices/:invoice_id/view", s.ViewInvoice)
	business.POST("/invoices/:invoice_id/payments", s.RecordPayment)
	business.POST("/invoices/:invoice_id/void", s.VoidInvoice)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine, _ *Server) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func parseID(c *gin.Context, param string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(param))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return id, true
}
