package http

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"grocery-ordering-system/internal/core/ports"
)

// RateLimiterMiddleware limits requests per client IP.
type RateLimiterMiddleware struct {
	repo   ports.RateLimiterRepository
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewRateLimiterMiddleware(repo ports.RateLimiterRepository, limit int, window time.Duration, logger *slog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		repo:   repo,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

func (m *RateLimiterMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// chi's RealIP may leave a bare address
			ip = r.RemoteAddr
		}

		allowed, err := m.repo.IsAllowed(r.Context(), ip, m.limit, m.window)
		if err != nil {
			// fail open: a broken limiter must not take the shop down
			m.logger.Error("rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			writeJSONError(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
