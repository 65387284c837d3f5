package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request over the limit allowed")
	}
	// Other callers have their own buckets.
	if !rl.Allow("10.0.0.2") {
		t.Fatal("fresh IP denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request denied")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second request in window allowed")
	}
	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("request after window reset denied")
	}
}

func TestRetryAfter(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if rl.RetryAfter("10.0.0.1") != 0 {
		t.Fatal("unknown IP must not wait")
	}
	rl.Allow("10.0.0.1")
	if after := rl.RetryAfter("10.0.0.1"); after <= 0 || after > 61 {
		t.Fatalf("retry-after %d out of range", after)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/world", nil)
	req.RemoteAddr = "192.168.1.5:51234"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("429 missing Retry-After header")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:51234"
	if ip := clientIP(req); ip != "192.168.1.5" {
		t.Fatalf("remote addr ip %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if ip := clientIP(req); ip != "203.0.113.9" {
		t.Fatalf("forwarded ip %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1, 10.0.0.2")
	if ip := clientIP(req); ip != "203.0.113.9" {
		t.Fatalf("first forwarded hop %q", ip)
	}
}
