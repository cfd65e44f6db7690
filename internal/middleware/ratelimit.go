package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *ipRateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep forgets visitors idle for longer than ttl.
func (rl *ipRateLimiter) sweep(now time.Time, ttl time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > ttl {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *ipRateLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(visitorTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.sweep(now, visitorTTL)
		}
	}
}

// RateLimitOption customizes RateLimit.
type RateLimitOption func(*rateLimitOptions)

type rateLimitOptions struct {
	reject http.Handler
}

// WithRejectHandler replaces the default {"error":"too many requests"}
// response sent to throttled clients.
func WithRejectHandler(h http.Handler) RateLimitOption {
	return func(o *rateLimitOptions) { o.reject = h }
}

// RateLimit returns middleware that limits requests per IP address.
// rps is the allowed requests per second, burst is the maximum burst size.
// Idle visitors are swept until ctx is done.
func RateLimit(ctx context.Context, rps float64, burst int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	limiter := newIPRateLimiter(rps, burst)
	go limiter.run(ctx)

	o := rateLimitOptions{
		reject: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusTooManyRequests, "too many requests")
		}),
	}
	for _, opt := range opts {
		opt(&o)
	}
	retryAfter := strconv.Itoa(int(math.Ceil(1 / math.Max(rps, 0.001))))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiter.getLimiter(ip, time.Now()).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				o.reject.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
