package infra

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client token bucket. Clients are keyed by IP,
// honouring X-Forwarded-For set by the reverse proxy in front of the service.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	perMin   int
	burst    int
	lastSeen time.Duration
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter builds a limiter allowing perMinute requests with the given
// burst per client. perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		perMin:   perMinute,
		burst:    burst,
		lastSeen: 10 * time.Minute,
	}
}

// Allow reports whether the client identified by key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil || rl.perMin <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cl, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) > 1024 {
			rl.evictStale(now)
		}
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), rl.burst),
		}
		rl.clients[key] = cl
	}
	cl.seen = now
	return cl.limiter.Allow()
}

func (rl *RateLimiter) evictStale(now time.Time) {
	for key, cl := range rl.clients {
		if now.Sub(cl.seen) > rl.lastSeen {
			delete(rl.clients, key)
		}
	}
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMin))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"message":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
