package main

import (
	"log"
	"os"

	"github.com/badrakh/monshop-api/internal/application/service"
	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/internal/infrastructure/database"
	"github.com/badrakh/monshop-api/internal/infrastructure/qpay"
	"github.com/badrakh/monshop-api/internal/infrastructure/repository"
	"github.com/badrakh/monshop-api/internal/presentation/http/handler"
	"github.com/badrakh/monshop-api/internal/presentation/http/routes"
	"github.com/badrakh/monshop-api/pkg/email"
	"github.com/badrakh/monshop-api/pkg/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed default data
	if err := database.SeedDefaultData(db); err != nil {
		log.Printf("Warning: Failed to seed default data: %v", err)
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	orderLineRepo := repository.NewOrderLineRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Initialize email service
	emailService := email.NewEmailService(email.EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromName:     cfg.Email.FromName,
		FromEmail:    cfg.Email.FromEmail,
		FrontendURL:  cfg.Email.FrontendURL,
	})

	// Initialize payment gateway client
	gateway := qpay.NewClient(cfg.QPay)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager)
	orderService := service.NewOrderService(orderRepo, orderLineRepo, productRepo, &cfg.QPay)
	invoiceService := service.NewInvoiceService(orderRepo, gateway, &cfg.QPay)
	receiptService := service.NewReceiptService(orderRepo, receiptRepo, gateway, &cfg.QPay)
	statusCache := service.NewStatusCache(cfg.QPay.StatusCacheTTL)
	checkLimiter := service.NewCheckLimiter(cfg.QPay.CheckInterval)
	reconcileService := service.NewReconcileService(orderRepo, gateway, receiptService, statusCache, emailService)
	paymentService := service.NewPaymentService(orderRepo, gateway, reconcileService, statusCache, checkLimiter)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Order:   handler.NewOrderHandler(orderService),
		Payment: handler.NewPaymentHandler(invoiceService, paymentService, reconcileService, receiptService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
	log.Printf("Environment: %s", cfg.App.Env)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
