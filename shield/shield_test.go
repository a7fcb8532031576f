package shield

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/extractions", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
}

func TestMaxBody(t *testing.T) {
	h := MaxBody(64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/extract", strings.NewReader(strings.Repeat("x", 32))))
	if rec.Code != http.StatusOK {
		t.Errorf("small body: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/extract", strings.NewReader(strings.Repeat("x", 128))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: %d", rec.Code)
	}
}

func newTestLimiter(cfg RateLimitConfig) *RateLimiter {
	return NewRateLimiter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(h http.Handler, ip, path string) int {
	req := httptest.NewRequest("POST", path, nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_Blocks(t *testing.T) {
	rl := newTestLimiter(RateLimitConfig{MaxRequests: 2, Window: time.Minute})
	h := rl.Middleware(okHandler())

	if code := do(h, "203.0.113.7", "/extract"); code != http.StatusOK {
		t.Fatalf("first: %d", code)
	}
	if code := do(h, "203.0.113.7", "/extract"); code != http.StatusOK {
		t.Fatalf("second: %d", code)
	}
	if code := do(h, "203.0.113.7", "/extract"); code != http.StatusTooManyRequests {
		t.Fatalf("third: %d", code)
	}
	// A different IP has its own bucket.
	if code := do(h, "203.0.113.8", "/extract"); code != http.StatusOK {
		t.Errorf("other ip: %d", code)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newTestLimiter(RateLimitConfig{MaxRequests: 1, Window: time.Minute})
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	h := rl.Middleware(okHandler())

	if code := do(h, "203.0.113.7", "/extract"); code != http.StatusOK {
		t.Fatalf("first: %d", code)
	}
	if code := do(h, "203.0.113.7", "/extract"); code != http.StatusTooManyRequests {
		t.Fatalf("over limit: %d", code)
	}
	clock = clock.Add(2 * time.Minute)
	if code := do(h, "203.0.113.7", "/extract"); code != http.StatusOK {
		t.Errorf("after window: %d", code)
	}
}

func TestRateLimiter_Excludes(t *testing.T) {
	rl := newTestLimiter(RateLimitConfig{MaxRequests: 1, Window: time.Minute})
	h := rl.Middleware(okHandler())
	for i := 0; i < 5; i++ {
		if code := do(h, "203.0.113.7", "/healthz"); code != http.StatusOK {
			t.Fatalf("healthz run %d: %d", i, code)
		}
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.4:9000"
	if got := ExtractIP(req); got != "198.51.100.4" {
		t.Errorf("remote addr: %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.4")
	if got := ExtractIP(req); got != "203.0.113.9" {
		t.Errorf("forwarded: %q", got)
	}
}
