package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealscout/dealscout/api/handler"
	"github.com/dealscout/dealscout/api/middleware"
	"github.com/dealscout/dealscout/config"
	"github.com/dealscout/dealscout/pipeline"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(orch *pipeline.Orchestrator, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Single-URL extraction.
	protected.POST("/extract", handler.Extract(orch))

	// Batch
	protected.POST("/batch", handler.PostBatch(orch, cfg.Webhook.Secret))
	protected.GET("/batch/:id", handler.GetBatch())

	return r
}
