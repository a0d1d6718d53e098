package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/artifact-cms/internal/metrics"
)

// Allower is implemented by *ratelimit.Limiter.
type Allower interface {
	Allow(ctx context.Context, resource, id string) (bool, error)
	Window() time.Duration
}

// RateLimit rejects clients that exceed the limiter's budget for resource
// with 429. Clients are identified by IP, so chi's RealIP must run first when
// the server sits behind a proxy.
//
// A nil limiter disables the check. If the limiter itself fails (Redis is
// down) the request is let through and the failure logged.
func RateLimit(limiter Allower, resource string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), resource, "ip:"+clientIP(r))
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.RateLimited.WithLabelValues(resource).Inc()
				logger.Info("rate limit exceeded",
					slog.String("resource", resource),
					slog.String("remote", r.RemoteAddr),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "rate_limited",
					"message": "too many requests, try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. After chi's RealIP the address
// may already be a bare IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
