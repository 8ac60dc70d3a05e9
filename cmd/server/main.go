package main

import (
	"context"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ideate-app/backend/internal/router"
	"github.com/ideate-app/backend/pkg/config"
	"github.com/ideate-app/backend/pkg/firebase"
	"github.com/ideate-app/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLog := logrus.New()
	if cfg.Env == "development" {
		appLog.SetLevel(logrus.DebugLevel)
	}

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Firebase login is optional; the OTP flow works without it.
	var firebaseAuthClient *auth.Client
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		firebaseAuthClient = firebaseApp.AuthClient
	} else {
		appLog.Warn("FIREBASE_CREDENTIALS_PATH not set, firebase login disabled")
	}

	// Create Echo instance
	e := echo.New()
	e.Validator = validators.NewValidator()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, cfg, db.Postgres, db.Mongo, firebaseAuthClient, appLog)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
