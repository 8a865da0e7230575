package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter implements a per-IP token bucket. It fronts the redirect
// endpoint so repeated failures against password-protected slugs are
// throttled outside the policy evaluator, which only reports denials.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*bucket
	rate     int           // tokens added per interval
	burst    int           // max tokens (bucket size)
	interval time.Duration // token refill interval
	cleanup  time.Duration // idle entry eviction interval
	log      *zap.Logger
}

type bucket struct {
	tokens    int
	lastCheck time.Time
}

// RateLimiterConfig holds rate limiter settings.
type RateLimiterConfig struct {
	Rate     int
	Burst    int
	Interval time.Duration
	Cleanup  time.Duration
}

// NewRateLimiter creates a limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimiterConfig, log *zap.Logger) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = 5 * time.Minute
	}

	rl := &RateLimiter{
		clients:  make(map[string]*bucket),
		rate:     cfg.Rate,
		burst:    cfg.Burst,
		interval: cfg.Interval,
		cleanup:  cfg.Cleanup,
		log:      log,
	}

	go rl.cleanupLoop()
	return rl
}

// Middleware returns the limiter as a chainable middleware.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := limiterKey(r)
			if !rl.allow(ip) {
				rl.log.Debug("rate limit exceeded", zap.String("ip", ip))
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "too many requests, please try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.clients[key]
	if !ok {
		rl.clients[key] = &bucket{tokens: rl.burst - 1, lastCheck: now}
		return true
	}

	elapsed := now.Sub(b.lastCheck)
	refill := int(elapsed/rl.interval) * rl.rate
	if refill > 0 {
		b.tokens += refill
		if b.tokens > rl.burst {
			b.tokens = rl.burst
		}
		b.lastCheck = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-rl.cleanup)
		rl.mu.Lock()
		for key, b := range rl.clients {
			if b.lastCheck.Before(cutoff) {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

func limiterKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
