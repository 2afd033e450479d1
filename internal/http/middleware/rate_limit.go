package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stayserve/hotel-orders/internal/http/response"
	"github.com/stayserve/hotel-orders/internal/repository"
	"github.com/stayserve/hotel-orders/pkg/logger"
)

// RateLimit caps requests per client IP over a fixed window. The check
// fails open: a storage error never blocks traffic.
func RateLimit(repo repository.RateLimitRepository, prefix string, requests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := prefix + ":" + clientIP(r)

			allowed, err := repo.CheckRateLimit(r.Context(), key, requests, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				response.RateLimit(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the real client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
