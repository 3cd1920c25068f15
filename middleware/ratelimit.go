package middleware

import (
	"net/http"
	"sync"

	"github.com/Linanok/Linanok/utils"

	"golang.org/x/time/rate"
)

// RateLimiter implements per-IP rate limiting for the redirect surface.
type RateLimiter struct {
	limiters          map[string]*rate.Limiter
	mu                sync.Mutex
	r                 rate.Limit
	b                 int
	trustProxyHeaders bool
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerSecond float64, burst int, trustProxyHeaders bool) *RateLimiter {
	return &RateLimiter{
		limiters:          make(map[string]*rate.Limiter),
		r:                 rate.Limit(requestsPerSecond),
		b:                 burst,
		trustProxyHeaders: trustProxyHeaders,
	}
}

// getLimiter returns the rate limiter for a given IP.
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.r, rl.b)
		rl.limiters[ip] = limiter
	}

	return limiter
}

// Limit is a middleware that rate limits requests per client IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r, rl.trustProxyHeaders)

		if !rl.getLimiter(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error": "Rate limit exceeded. Please try again later."}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
