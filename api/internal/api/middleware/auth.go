package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rebooked/api/internal/core/domain"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type AuthMiddleware struct {
	Verifier domain.IdentityVerifier
	Logger   *slog.Logger
	visitors sync.Map // 🛡️ Thread-safe map for high-concurrency scaling
}

func NewAuthMiddleware(verifier domain.IdentityVerifier, logger *slog.Logger) *AuthMiddleware {
	m := &AuthMiddleware{
		Verifier: verifier,
		Logger:   logger,
	}
	// Start cleanup worker as a managed method, not a global init
	go m.cleanupVisitors()
	return m
}

// ==============================================================================
// 1. Identity Gate
// ==============================================================================

// RequireAuthentication resolves the caller before any record is touched.
// 🛡️ A missing bearer credential is rejected immediately, without contacting
// the identity provider; every validation failure maps to the same 401.
func (m *AuthMiddleware) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r)

		if tokenString == "" {
			http.Error(w, `{"success":false,"error":"Unauthorized - please login first"}`, http.StatusUnauthorized)
			return
		}

		identity, err := m.Verifier.Verify(r.Context(), tokenString)
		if err != nil {
			m.Logger.Warn("Rejected credential", slog.String("path", r.URL.Path))
			http.Error(w, `{"success":false,"error":"Unauthorized - please login first"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), domain.IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the gate-resolved caller, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(domain.IdentityContextKey).(domain.Identity)
	return identity, ok
}

// ==============================================================================
// 2. Performance & DoS Protection
// ==============================================================================

func (m *AuthMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 🛡️ Use X-Real-IP for proxy compatibility
		ip := r.Header.Get("X-Real-IP")
		if ip == "" {
			ip = r.RemoteAddr
		}

		v, _ := m.visitors.LoadOrStore(ip, &visitor{
			limiter:  rate.NewLimiter(rate.Limit(10), 30),
			lastSeen: time.Now(),
		})

		vis := v.(*visitor)
		vis.lastSeen = time.Now()

		if !vis.limiter.Allow() {
			http.Error(w, `{"success":false,"error":"Rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		m.visitors.Range(func(key, value interface{}) bool {
			if time.Since(value.(*visitor).lastSeen) > 3*time.Minute {
				m.visitors.Delete(key)
			}
			return true
		})
	}
}

// ==============================================================================
// 3. Shared Pipeline Helpers
// ==============================================================================

// MaxBytes caps request bodies so malicious clients cannot stream unbounded
// JSON into memory.
func MaxBytes(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// StructuredLogger emits one slog line per request. Paths and methods only;
// bodies are never logged here because they may carry plaintext field values.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
