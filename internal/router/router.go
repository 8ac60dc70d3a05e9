package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/ideate-app/backend/internal/handlers"
	"github.com/ideate-app/backend/internal/middleware"
	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/notifications"
	"github.com/ideate-app/backend/internal/repositories"
	"github.com/ideate-app/backend/pkg/config"
	"github.com/ideate-app/backend/pkg/mailer"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client, appLog *logrus.Logger) {
	// AutoMigrate the PostgreSQL stats store
	if err := pgdb.AutoMigrate(&models.EngagementEvent{}); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	mongoDB := mgClient.Database(cfg.MongoDatabase)
	userRepo := repositories.NewMongoUserRepository(mongoDB)
	ideaRepo := repositories.NewMongoIdeaRepository(mongoDB)
	statsRepo := repositories.NewPostgresStatsRepository(pgdb)

	// --- Notification engine ---
	// The user repository doubles as the notification directory.
	aggregator := notifications.NewAggregator(userRepo, appLog)
	resolver := notifications.NewResolver(userRepo, aggregator, appLog)

	otpMailer := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, otpMailer, firebaseAuthClient, cfg.JWTSecret, appLog)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	userHandler := handlers.NewUserHandler(userRepo, ideaRepo, appLog)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	ideaHandler := handlers.NewIdeaHandler(ideaRepo, userRepo, statsRepo, aggregator, appLog)
	ideaHandler.RegisterIdeaRoutes(api)
	log.Println("Idea routes configured.")

	commentHandler := handlers.NewCommentHandler(ideaRepo, userRepo, statsRepo, aggregator, resolver, appLog)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	followHandler := handlers.NewFollowHandler(userRepo, aggregator)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	notificationHandler := handlers.NewNotificationHandler(aggregator, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	analyticsHandler := handlers.NewAnalyticsHandler(ideaRepo, statsRepo)
	analyticsHandler.RegisterAnalyticsRoutes(api)
	log.Println("Analytics routes configured.")

	log.Println("All routes configured.")
}
