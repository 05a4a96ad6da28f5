package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/dinein/internal/audit"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	"github.com/smallbiznis/dinein/internal/catalog"
	"github.com/smallbiznis/dinein/internal/config"
	"github.com/smallbiznis/dinein/internal/events"
	"github.com/smallbiznis/dinein/internal/kds"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	"github.com/smallbiznis/dinein/internal/kitchenwatch"
	"github.com/smallbiznis/dinein/internal/observability"
	obsmiddleware "github.com/smallbiznis/dinein/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/dinein/internal/observability/metrics"
	obstracing "github.com/smallbiznis/dinein/internal/observability/tracing"
	"github.com/smallbiznis/dinein/internal/order"
	orderdomain "github.com/smallbiznis/dinein/internal/order/domain"
	"github.com/smallbiznis/dinein/internal/orderlock"
	"github.com/smallbiznis/dinein/internal/schedule"
	scheduledomain "github.com/smallbiznis/dinein/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	orderlock.Module,
	events.Module,
	audit.Module,
	catalog.Module,
	order.Module,
	kds.Module,
	schedule.Module,
	kitchenwatch.Module,
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
	r.Use(httpMetrics.GinMiddleware())
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type Server struct {
	engine      *gin.Engine
	orderSvc    orderdomain.Service
	kdsSvc      kdsdomain.Service
	scheduleSvc scheduledomain.Service
	auditSvc    auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	OrderSvc    orderdomain.Service
	KDSSvc      kdsdomain.Service
	ScheduleSvc scheduledomain.Service
	AuditSvc    auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		orderSvc:    p.OrderSvc,
		kdsSvc:      p.KDSSvc,
		scheduleSvc: p.ScheduleSvc,
		auditSvc:    p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	// -------- Orders --------
	orders := api.Group("/orders")
	orders.POST("", s.ActorRequired(), s.OpenOrder)
	orders.GET("/:id", s.GetOrder)
	orders.GET("/:id/audit-logs", s.ListOrderAuditLogs)
	orders.POST("/:id/items", s.AddItem)
	orders.POST("/:id/items/:item_id/void", s.ActorRequired(), s.VoidItem)
	orders.POST("/:id/discounts", s.ActorRequired(), s.ApplyDiscount)
	orders.POST("/:id/split-bills", s.CreateSplitBills)
	orders.POST("/:id/split-bills/even", s.SplitEvenly)
	orders.POST("/:id/payments", s.ActorRequired(), s.RecordPayment)
	orders.POST("/:id/close", s.ActorRequired(), s.CloseOrder)
	orders.POST("/:id/void", s.ActorRequired(), s.VoidOrder)
	orders.POST("/:id/kitchen", s.SendToKitchen)

	// -------- Kitchen display --------
	kitchen := api.Group("/kds")
	kitchen.POST("/stations", s.CreateStation)
	kitchen.POST("/stations/:id/rules", s.AddRoutingRule)
	kitchen.GET("/stations/:id/tickets", s.ListStationTickets)
	kitchen.POST("/stations/:id/tickets", s.CreateTicket)
	kitchen.PATCH("/tickets/:id/status", s.UpdateTicketStatus)

	// -------- Shifts --------
	shifts := api.Group("/shifts")
	shifts.GET("", s.ListShifts)
	shifts.POST("", s.ActorRequired(), s.AssignShift)
	shifts.POST("/:id/cancel", s.ActorRequired(), s.CancelShift)
}
