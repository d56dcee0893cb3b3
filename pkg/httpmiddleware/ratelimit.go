package httpmiddleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window. Zero disables limiting.
	Max int

	// Window is the duration of the counting window.
	Window time.Duration
}

// clientWindow tracks one client's request count in the current window.
type clientWindow struct {
	count   int
	resetAt time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	cfg     RateLimitConfig
}

func (l *rateLimiter) allow(key string, now time.Time) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cw := l.clients[key]
	if cw == nil || now.After(cw.resetAt) {
		cw = &clientWindow{resetAt: now.Add(l.cfg.Window)}
		l.clients[key] = cw
	}

	if cw.count >= l.cfg.Max {
		return false, time.Until(cw.resetAt)
	}
	cw.count++
	return true, 0
}

func (l *rateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, cw := range l.clients {
		if now.After(cw.resetAt) {
			delete(l.clients, key)
		}
	}
}

// RateLimitWithCleanup returns a middleware limiting each client (by remote
// IP) to cfg.Max requests per cfg.Window, answering excess requests with 429
// and a Retry-After header. Stale client entries are purged periodically until
// ctx is canceled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	limiter := &rateLimiter{
		clients: make(map[string]*clientWindow),
		cfg:     cfg,
	}

	go func() {
		ticker := time.NewTicker(cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				limiter.cleanup(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Max <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			if ok, retryAfter := limiter.allow(key, time.Now()); !ok {
				seconds := int(retryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the client by remote IP, ignoring the port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
