package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/problem"
)

// Limiter is a fixed-window request counter per principal. Buckets are
// guarded individually; there is no global lock across the window check.
type Limiter struct {
	window time.Duration
	max    int

	mu      sync.RWMutex
	buckets map[string]*window
}

type window struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// NewLimiter creates a limiter allowing max requests per window. A cleanup
// goroutine evicts idle buckets.
func NewLimiter(windowDur time.Duration, max int) *Limiter {
	l := &Limiter{
		window:  windowDur,
		max:     max,
		buckets: make(map[string]*window),
	}
	go l.cleanupLoop()
	return l
}

// Allow counts a request against the principal's bucket. Returns whether the
// request is admitted, the remaining allowance, and the window reset time.
func (l *Limiter) Allow(key string, now time.Time) (allowed bool, remaining int, reset time.Time) {
	b := l.bucket(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	// The bucket resets atomically before the current request is counted.
	if now.Sub(b.start) >= l.window {
		b.start = now
		b.count = 0
	}
	b.count++

	reset = b.start.Add(l.window)
	remaining = l.max - b.count
	if remaining < 0 {
		remaining = 0
	}
	return b.count <= l.max, remaining, reset
}

func (l *Limiter) bucket(key string, now time.Time) *window {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = &window{start: now}
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		for key, b := range l.buckets {
			b.mu.Lock()
			idle := time.Since(b.start) > 2*l.window
			b.mu.Unlock()
			if idle {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit enforces the per-principal fixed window. The principal is the
// authenticated subject when one is already on the context, otherwise the
// client IP. Every response carries the X-RateLimit-* headers.
func RateLimit(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := Principal(r.Context())
			if key == "" {
				key = clientIP(r)
			}

			allowed, remaining, reset := l.Allow(key, time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				log.Ctx(r.Context()).Warn().
					Str("principal", key).
					Str("path", r.URL.Path).
					Msg("rate limit exceeded")
				problem.Write(w, r, problem.KindRateLimited, "request rate limit exceeded, retry after the window resets")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's network identity. chi's RealIP middleware
// has already folded X-Forwarded-For into RemoteAddr when trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
