package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address.
//
// A non-positive rate disables limiting.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	now     func() time.Time

	// trustForwarded keys clients on X-Forwarded-For instead of the peer address.
	trustForwarded bool
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *clientLimiter) enabled() bool {
	return l.limit > 0
}

// allow reports whether ip may make a request now.
func (l *clientLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// forget drops clients idle for longer than idle.
func (l *clientLimiter) forget(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	dropped := 0
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			dropped++
		}
	}
	return dropped
}

// sweep calls forget every interval until ctx is done.
func (l *clientLimiter) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.forget(3 * interval)
		}
	}
}

// rateLimit rejects requests over the per-address budget with 429.
func rateLimit(l *clientLimiter, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if !l.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, l.trustForwarded)
			if !l.allow(ip) {
				logger.Warn("rate limited", "client", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP from a request. X-Forwarded-For is
// client-controlled, so it is only read when trustForwarded is set.
func clientIP(r *http.Request, trustForwarded bool) string {
	if xff := r.Header.Get("X-Forwarded-For"); trustForwarded && xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
