package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCleanupInterval is how often RateLimitWithCleanup evicts idle
// clients when RateLimitConfig.CleanupInterval is zero.
const DefaultCleanupInterval = time.Minute

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second.
	Rate float64
	// Burst is the bucket size.
	Burst int
	// KeyFunc extracts the client key. Defaults to the client IP.
	KeyFunc func(*http.Request) string
	// CleanupInterval is the eviction period used by RateLimitWithCleanup.
	CleanupInterval time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	cfg  RateLimitConfig
	idle time.Duration

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	// An untouched bucket is full again after Burst/Rate seconds and is
	// then indistinguishable from a new one.
	refill := time.Duration(float64(cfg.Burst) / cfg.Rate * float64(time.Second))
	return &limiterSet{
		cfg:     cfg,
		idle:    max(refill, time.Second),
		entries: make(map[string]*limiterEntry),
	}
}

func (s *limiterSet) reserve(key string, now time.Time) *rate.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.cfg.Rate), s.cfg.Burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.ReserveN(now, 1)
}

// cleanup drops clients idle long enough for their bucket to refill.
func (s *limiterSet) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.Sub(e.lastSeen) >= s.idle {
			delete(s.entries, key)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// startCleanup evicts idle clients every interval until ctx is cancelled.
func (s *limiterSet) startCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.cleanup(now)
			}
		}
	}()
}

func (s *limiterSet) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			res := s.reserve(s.cfg.KeyFunc(r), now)
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				retry := int(delay.Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func passThrough(next http.Handler) http.Handler { return next }

func normalize(cfg RateLimitConfig) RateLimitConfig {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	return cfg
}

// RateLimit rejects requests above the configured rate with 429 and a
// Retry-After hint. A non-positive Rate disables limiting.
//
// Clients are never evicted; use RateLimitWithCleanup for long-running
// servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Rate <= 0 {
		return passThrough
	}
	return newLimiterSet(normalize(cfg)).middleware()
}

// RateLimitWithCleanup is like RateLimit but also evicts idle clients every
// CleanupInterval until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Rate <= 0 {
		return passThrough
	}
	cfg = normalize(cfg)
	set := newLimiterSet(cfg)
	set.startCleanup(ctx, cfg.CleanupInterval)
	return set.middleware()
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// address host, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
