package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rebooked/api/internal/api/handlers"
	"rebooked/api/internal/api/middleware"
	"rebooked/api/internal/api/router"
	"rebooked/api/internal/config"
	"rebooked/api/internal/core/services"
	"rebooked/api/internal/db/postgres"
	"rebooked/api/internal/infrastructure/crypto"
	"rebooked/api/internal/mailer"
	"rebooked/api/internal/telemetry"
)

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// .env is a local development convenience; production relies on real env vars.
	_ = godotenv.Load()

	logger.Info("🚀 Booting ReBooked API...")
	cfg := config.Load()
	metrics := telemetry.New()

	// --- 2. Outbound Infrastructure ---
	dbPool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("FATAL: DB failed", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// --- 3. Hardened Dependency Injection ---
	keyRing := crypto.NewKeyRing(cfg.EncryptionKeys, cfg.EncryptionKey)
	encryptor := crypto.NewFieldEncryptor()

	// Repositories
	bankingRepo := postgres.NewBankingRepo(dbPool)
	referralRepo := postgres.NewReferralRepo(dbPool)

	// Services
	protectionService := services.NewProtectionService(bankingRepo, keyRing, encryptor, logger)
	referralService := services.NewReferralService(referralRepo, logger)
	verifier := services.NewTokenVerifier(cfg.JWTSecret)

	// Outbound mail
	mail := mailer.NewProviderClient(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)

	// Handlers
	bankingHandler := handlers.NewBankingHandler(protectionService, metrics, logger)
	referralHandler := handlers.NewReferralHandler(referralService, metrics, logger)
	emailHandler := handlers.NewEmailHandler(mail, metrics, logger)
	healthHandler := handlers.NewHealthHandler(dbPool)

	authMiddleware := middleware.NewAuthMiddleware(verifier, logger)

	// --- 4. HTTP Gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		BankingHandler:  bankingHandler,
		ReferralHandler: referralHandler,
		EmailHandler:    emailHandler,
		HealthHandler:   healthHandler,
		AuthMiddleware:  authMiddleware,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// --- 5. Graceful Exit ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("🌐 ReBooked API active", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("CRITICAL: Server crashed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	logger.Info("✅ ReBooked API shutdown complete.")
}
