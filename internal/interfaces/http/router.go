// Package http wires the gin engine: middleware chain, routes, and the
// server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/internal/interfaces/http/handlers"
	"github.com/edusight/edusight/internal/interfaces/http/middleware"
	"github.com/edusight/edusight/pkg/logger"
)

// Router HTTP 路由器
type Router struct {
	engine         *gin.Engine
	config         *config.Config
	logger         logger.Logger
	tracing        *monitoring.TracingManager
	healthHandler  *handlers.HealthHandler
	statsHandler   *handlers.StatsHandler
	studentHandler *handlers.StudentHandler
	auditHandler   *handlers.AuditHandler
	server         *http.Server
}

// NewRouter 创建路由器
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	tracing *monitoring.TracingManager,
	healthHandler *handlers.HealthHandler,
	statsHandler *handlers.StatsHandler,
	studentHandler *handlers.StudentHandler,
	auditHandler *handlers.AuditHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	return &Router{
		engine:         gin.New(),
		config:         cfg,
		logger:         log.WithComponent("Router"),
		tracing:        tracing,
		healthHandler:  healthHandler,
		statsHandler:   statsHandler,
		studentHandler: studentHandler,
		auditHandler:   auditHandler,
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Tracing(r.tracing))
	r.engine.Use(middleware.Logging(r.logger))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     r.config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.engine.GET("/live", r.healthHandler.Liveness)
	r.engine.GET("/ready", r.healthHandler.Readiness)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.EnablePprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.RequirePrincipal(r.config.Server.JWTSecret, r.logger))
	{
		v1.GET("/stats", r.statsHandler.GetStats)

		students := v1.Group("/students")
		{
			students.GET("", r.studentHandler.ListStudents)
			students.GET("/:student_id", r.studentHandler.GetStudentDetail)
			students.PUT("/:student_id", r.studentHandler.UpdateStudent)
			students.POST("/bulk-update", r.studentHandler.BulkUpdate)
		}

		v1.POST("/tenants/:tenant_id/ingest", r.studentHandler.IngestBatch)
		v1.GET("/audit/:principal_id", r.auditHandler.ListByPrincipal)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "the requested resource was not found",
		})
	})
}

// Start 启动 HTTP 服务器
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "Shutting down HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the underlying gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
