package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 5, Interval: time.Minute}, zap.NewNop())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := rl.Middleware()(next)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/slug", nil)
		r.RemoteAddr = "203.0.113.1:12345"
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d; want 200", i+1, w.Code)
		}
	}
}

func TestRateLimiter_BlocksPastBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, Interval: time.Minute}, zap.NewNop())
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/slug", nil)
		r.RemoteAddr = "203.0.113.2:12345"
		h.ServeHTTP(w, r)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d; want 429", last)
	}
}

func TestRateLimiter_KeysPerIP(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Interval: time.Minute}, zap.NewNop())
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust one IP.
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/slug", nil)
	r.RemoteAddr = "203.0.113.3:12345"
	h.ServeHTTP(w, r)

	// A different IP is unaffected.
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/slug", nil)
	r.RemoteAddr = "203.0.113.4:12345"
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("fresh IP status = %d; want 200", w.Code)
	}
}
