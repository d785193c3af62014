package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rebooked/api/internal/api/handlers"
	auth_middleware "rebooked/api/internal/api/middleware"
)

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins  []string
	BankingHandler  *handlers.BankingHandler
	ReferralHandler *handlers.ReferralHandler
	EmailHandler    *handlers.EmailHandler
	HealthHandler   *handlers.HealthHandler
	AuthMiddleware  *auth_middleware.AuthMiddleware
	Logger          *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// 🛡️ Limit all incoming JSON requests to 1 Megabyte max (OOM Protection)
	r.Use(auth_middleware.MaxBytes(1_048_576))

	// 🛡️ In-memory token bucket rate limiting
	r.Use(cfg.AuthMiddleware.RateLimit)

	// Strict CORS Configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "ApiKey"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// =========================================================================
	// 2. API v1 Routing Tree
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {

		// ---------------------------------------------------------------------
		// Public Routes (No Auth Required)
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			// Referral attribution fires during signup, before a session exists.
			r.Post("/referrals/track", cfg.ReferralHandler.Track)
		})

		// ---------------------------------------------------------------------
		// Protected Routes (Requires a Valid Bearer Token)
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireAuthentication)

			r.Post("/banking/protect", cfg.BankingHandler.Protect)
			r.Post("/email/test", cfg.EmailHandler.SendTest)
		})
	})

	// Operational endpoints stay outside the versioned tree.
	r.Get("/healthz", cfg.HealthHandler.Check)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}
