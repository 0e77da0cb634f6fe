package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket per client IP
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client // per-IP buckets
	limit   rate.Limit
	burst   int
	idle    time.Duration // forget clients unseen for this long
	swept   time.Time
	now     func() time.Time
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// New creates an IP-based limiter allowing max requests per window,
// refilled evenly across the window
func New(max int, per time.Duration) *Limiter {
	if max <= 0 {
		max = 1
	}
	return &Limiter{
		clients: map[string]*client{},
		limit:   rate.Every(per / time.Duration(max)),
		burst:   max,
		idle:    3 * per,
		now:     time.Now,
	}
}

// Allow reports whether a request from ip may proceed now
func (l *Limiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.idle {
		for k, c := range l.clients {
			if now.Sub(c.seen) > l.idle {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	c := l.clients[ip]
	if c == nil {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// Middleware enforces the rate limit before calling the next handler
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip = req.RemoteAddr
		}
		if !l.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
