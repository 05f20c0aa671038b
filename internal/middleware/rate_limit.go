package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fleetops-platform/api/internal/httpx"
)

type rateWindow struct {
	count      int
	windowEnds time.Time
}

// IPRateLimiter is a fixed-window per-IP limiter used on the import
// endpoints, which are expensive enough to be worth throttling.
type IPRateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	attempt    map[string]rateWindow
}

func NewIPRateLimiter(limit int, window time.Duration, maxEntries int) *IPRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &IPRateLimiter{
		limit:      limit,
		window:     window,
		maxEntries: maxEntries,
		attempt:    map[string]rateWindow{},
	}
}

func (rl *IPRateLimiter) Middleware(message string) func(http.Handler) http.Handler {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r.RemoteAddr)
			if ip == "" {
				ip = "unknown"
			}

			now := time.Now()
			rl.mu.Lock()
			entry, tracked := rl.attempt[ip]
			if entry.windowEnds.Before(now) {
				entry = rateWindow{count: 0, windowEnds: now.Add(rl.window)}
			}
			entry.count++
			if !tracked && len(rl.attempt) >= rl.maxEntries {
				rl.pruneExpired(now)
			}
			if tracked || len(rl.attempt) < rl.maxEntries {
				rl.attempt[ip] = entry
			}
			rl.mu.Unlock()

			if entry.count > rl.limit {
				httpx.WriteError(w, r, http.StatusTooManyRequests, "rate_limited", message, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// pruneExpired is called with the mutex held.
func (rl *IPRateLimiter) pruneExpired(now time.Time) {
	for ip, entry := range rl.attempt {
		if entry.windowEnds.Before(now) {
			delete(rl.attempt, ip)
		}
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
