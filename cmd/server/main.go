package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/config"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/domain"
	"github.com/ysrn87/meetandgo-sub000/internal/handlers"
	"github.com/ysrn87/meetandgo-sub000/internal/middleware"
	"github.com/ysrn87/meetandgo-sub000/internal/services"
	"github.com/ysrn87/meetandgo-sub000/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting MeetAndGo Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	packageRepo := database.NewTourPackageRepository(db)
	departureRepo := database.NewDepartureRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	customRequestRepo := database.NewCustomRequestRepository(db)
	auditRepo := database.NewPaymentAuditRepository(db, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	bookingService := services.NewBookingService(bookingRepo, departureRepo, packageRepo, logger)
	customRequestService := services.NewCustomRequestService(customRequestRepo, logger)
	midtransService := services.NewMidtransService(&cfg.Payment, logger)
	if !midtransService.IsConfigured() {
		logger.Warn("Payment gateway server key is not configured; payment creation will fail")
	}
	paymentService := services.NewPaymentService(bookingRepo, auditRepo, midtransService, bookingService, logger)
	sweeperService := services.NewSweeperService(bookingRepo, bookingService, cfg.Sweeper.BatchSize, logger)

	cronService := services.NewCronService(sweeperService, logger)
	if err := cronService.Start(cfg.Sweeper.Interval); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(packageRepo, departureRepo, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	customRequestHandler := handlers.NewCustomRequestHandler(customRequestService, logger)
	adminHandler := handlers.NewAdminHandler(cronService, auditRepo, departureRepo, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public catalog
		v1.GET("/packages", catalogHandler.ListPackages)
		v1.GET("/packages/:id", catalogHandler.GetPackage)
		v1.GET("/packages/:id/departures", catalogHandler.ListDepartures)
		v1.GET("/departures/:id/groups", catalogHandler.ListGroups)
		v1.GET("/departures/:id/availability", catalogHandler.GetAvailability)

		// Payment webhook (public; authenticated by the signature in the body)
		v1.POST("/payments/webhook", paymentHandler.Webhook)

		// Booking routes (customer)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/code/:code", bookingHandler.GetBookingByCode)
			bookings.GET("/:id/participants", bookingHandler.GetParticipants)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.POST("/:id/payment", paymentHandler.CreatePayment)
			bookings.GET("/:id/payment/status", paymentHandler.PollStatus)
		}

		// Custom tour request routes (customer)
		customRequests := v1.Group("/custom-requests")
		customRequests.Use(middleware.AuthMiddleware(jwtService))
		{
			customRequests.POST("", customRequestHandler.CreateRequest)
			customRequests.GET("", customRequestHandler.ListRequests)
			customRequests.GET("/:id", customRequestHandler.GetRequest)
			customRequests.GET("/:id/history", customRequestHandler.GetEstimateHistory)
			customRequests.POST("/:id/cancel", customRequestHandler.CancelRequest)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		{
			admin.POST("/packages", catalogHandler.CreatePackage)
			admin.POST("/departures", catalogHandler.CreateDeparture)
			admin.POST("/departures/:id/groups", catalogHandler.CreateGroup)
			admin.PATCH("/bookings/:id/status", bookingHandler.TransitionBooking)
			admin.GET("/custom-requests", customRequestHandler.ListByStatus)
			admin.PATCH("/custom-requests/:id/status", customRequestHandler.TransitionRequest)
			admin.POST("/custom-requests/:id/estimate", customRequestHandler.UpdateEstimate)
			admin.POST("/sweep", adminHandler.TriggerSweep)
			admin.POST("/groups/:id/release", adminHandler.ReleaseGroup)
			admin.GET("/payments/audits", adminHandler.GetPaymentAudits)
			admin.GET("/payments/mismatches", adminHandler.ListAmountMismatches)
			admin.GET("/payments/rejected", adminHandler.ListRejectedSignatures)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
