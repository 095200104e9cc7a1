// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"facturo/internal/domain/documents"
	"facturo/internal/infrastructure/http/v1/handlers"
	"facturo/internal/infrastructure/http/v1/middleware"
	"facturo/internal/infrastructure/storage/postgres"
	"facturo/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// DocumentService for devis/facture endpoints
	DocumentService *documents.Service

	// EventStore for the audit trail endpoint (optional)
	EventStore *postgres.EventStore

	// IdempotencyStore enables idempotency middleware when set
	IdempotencyStore *postgres.IdempotencyStore

	// AllowedOrigins for CORS; empty means same-origin only
	AllowedOrigins []string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders,
			"Authorization", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID)
		corsConfig.MaxAge = 12 * time.Hour
		router.Use(cors.New(corsConfig))
	}
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		baseHandler := handlers.NewBaseHandler()
		docHandler := handlers.NewDocumentHandler(baseHandler, cfg.DocumentService, cfg.EventStore)
		docHandler.RegisterRoutes(protected.Group("/documents"))
	}

	return router
}
