package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/socialchef/recipe-agent/internal/config"
	apperrors "github.com/socialchef/recipe-agent/internal/errors"
	"github.com/socialchef/recipe-agent/internal/metrics"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the number of per-IP limiters kept in memory.
// The least recently seen client is evicted first.
const maxTrackedClients = 10000

// RateLimiter provides IP-based rate limiting.
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new per-IP rate limiter.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	// lru.New only fails for a non-positive size.
	limiters, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return &RateLimiter{
		limiters: limiters,
		rate:     r,
		burst:    burst,
	}
}

// NewRateLimiterFromConfig returns nil when rate limiting is disabled.
func NewRateLimiterFromConfig(cfg config.RateLimitConfig) *RateLimiter {
	if cfg.Disabled {
		return nil
	}
	return NewRateLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

// getLimiter returns the rate limiter for the given IP, creating one if needed.
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	if l, ok := rl.limiters.Get(ip); ok {
		return l
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	// Another request may have raced us; keep whichever got there first.
	if prev, ok, _ := rl.limiters.PeekOrAdd(ip, limiter); ok {
		return prev
	}
	return limiter
}

func (rl *RateLimiter) retryAfter() int {
	if rl.rate <= 0 {
		return 1
	}
	return max(int(math.Ceil(1.0/float64(rl.rate))), 1)
}

// Middleware enforces the limit per client IP, taken from RemoteAddr. The
// router only rewrites RemoteAddr from forwarding headers when the service is
// configured to trust its proxy.
// A nil RateLimiter lets every request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(clientIP(r)).Allow() {
			metrics.RecordRateLimited(r.Context(), r.URL.Path)

			appErr := apperrors.NewRateLimitError("Too many requests, please slow down", "RATE_LIMITED",
				"Wait a moment before generating another recipe.")
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(appErr.StatusCode)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   appErr.Message,
				"code":    appErr.Code(),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
