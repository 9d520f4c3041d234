package http

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Client IPs feed the per-IP limit; only configured proxies may forward them
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Printf("[HTTP] invalid trusted proxies %v, trusting none: %v", cfg.Server.TrustedProxies, err)
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		cat := v1.Group("/catalog")
		{
			cat.GET("", handler.GetCatalog)
			cat.POST("/refresh", handler.RefreshCatalog)
		}
		v1.POST("/quote", handler.Quote)
	}

	return router
}
