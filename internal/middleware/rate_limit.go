package middleware

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"linker/internal/common"

	"golang.org/x/time/rate"
)

var errTooManyRequests = errors.New("too many requests")

// RateLimiter throttles requests per client IP with a token bucket.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	limit     rate.Limit
	burst     int
	whitelist map[string]bool
}

// NewRateLimiter allows rps requests per second per IP, bursting up to burst.
// Whitelisted IPs are never throttled.
func NewRateLimiter(rps float64, burst int, whitelist ...string) *RateLimiter {
	rl := &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Limit(rps),
		burst:     burst,
		whitelist: make(map[string]bool, len(whitelist)),
	}
	for _, ip := range whitelist {
		rl.whitelist[ip] = true
	}
	return rl
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if rl.whitelist[ip] {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.limiter(ip).Allow() {
			common.RespondError(w, time.Now(), errTooManyRequests, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
