package routes

import (
	"github.com/badrakh/monshop-api/internal/config"
	domainRepo "github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/internal/presentation/http/handler"
	"github.com/badrakh/monshop-api/internal/presentation/http/middleware"
	"github.com/badrakh/monshop-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth    *handler.AuthHandler
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes (no authentication required)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// The gateway pushes payment notifications here without credentials.
		// Both methods are registered; the gateway has used GET and POST
		// across API revisions.
		v1.GET("/payments/callback/:orderId", h.Payment.Callback)
		v1.POST("/payments/callback/:orderId", h.Payment.Callback)

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))

		rlCfg := middleware.DefaultRateLimiterConfig()
		if deps.Cfg.RateLimit.Requests > 0 && deps.Cfg.RateLimit.Duration > 0 {
			rlCfg.RequestsPerSecond = float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration)
			rlCfg.BurstSize = deps.Cfg.RateLimit.Requests
		}
		rateLimiter := middleware.NewClientRateLimiter(rlCfg)
		protected.Use(rateLimiter.Middleware())

		idempotencyCfg := middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo}
		idempotency := middleware.Idempotency(idempotencyCfg)

		orders := protected.Group("/orders")
		{
			orders.POST("", idempotency, h.Order.Create)
			orders.GET("", h.Order.List)
			orders.GET("/:id", h.Order.Get)
		}

		payments := protected.Group("/payments")
		{
			// Invoice creation must carry an Idempotency-Key so client
			// retries can never reach the gateway twice.
			payments.POST("/:orderId/invoice", middleware.IdempotencyRequired(idempotencyCfg), h.Payment.CreateInvoice)
			payments.GET("/:orderId/status", h.Payment.GetStatus)
			payments.GET("/:orderId/receipt", h.Payment.GetReceipt)
			payments.DELETE("/:orderId", h.Payment.Cancel)
			payments.DELETE("/:orderId/refund", middleware.RequireRole("admin"), h.Payment.Refund)
		}
	}

	return router
}
