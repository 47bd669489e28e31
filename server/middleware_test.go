package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := NewIPRateLimiter(ctx, RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 3})

	for i := 0; i < 3; i++ {
		if !limiter.Allow("192.168.1.1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("192.168.1.1") {
		t.Error("request 4 should be denied (rate limit exceeded)")
	}
	if !limiter.Allow("192.168.1.2") {
		t.Error("a different IP should have its own bucket")
	}
}

func TestIPRateLimiterDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := NewIPRateLimiter(ctx, RateLimitConfig{Enabled: false, RequestsPerSecond: 0.001, Burst: 1})
	for i := 0; i < 100; i++ {
		if !limiter.Allow("192.168.1.1") {
			t.Fatalf("request %d should be allowed when rate limiter is disabled", i+1)
		}
	}
}

func TestIPRateLimiterCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := NewIPRateLimiter(ctx, RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Hour})
	limiter.Allow("10.0.0.1")

	v, ok := limiter.limiters.Load("10.0.0.1")
	if !ok {
		t.Fatal("expected limiter entry")
	}
	v.(*ipLimiterEntry).lastSeen = time.Now().Add(-3 * time.Hour)
	limiter.cleanup()
	if _, ok := limiter.limiters.Load("10.0.0.1"); ok {
		t.Error("stale entry should be removed")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := NewIPRateLimiter(ctx, RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/matches/1/import", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "203.0.113.5:4444", nil, "203.0.113.5"},
		{"remote addr without port", "203.0.113.5", nil, "203.0.113.5"},
		{"forwarded single", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "198.51.100.1"},
		{"forwarded chain", "10.0.0.1:1", map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.2"}, "198.51.100.1"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"forwarded wins over real ip", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "198.51.100.1", "X-Real-IP": "198.51.100.9"}, "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusRecorderCapturesCode(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: rr, statusCode: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	rec.Flush()
	if rec.statusCode != http.StatusTeapot || rr.Code != http.StatusTeapot {
		t.Errorf("status = %d/%d, want 418", rec.statusCode, rr.Code)
	}
	if !rr.Flushed {
		t.Error("Flush should reach the underlying writer")
	}
}
