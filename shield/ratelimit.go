package shield

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig is a fixed-window per-IP limit. Extraction requests are
// expensive (a browser session each in the worst case), so the default is
// deliberately low.
type RateLimitConfig struct {
	// MaxRequests per IP per window. Default 30. Negative disables.
	MaxRequests int `yaml:"max_requests"`
	// Window duration. Default 1m.
	Window time.Duration `yaml:"window"`
	// ExcludePrefixes are path prefixes never limited (health checks).
	ExcludePrefixes []string `yaml:"exclude_prefixes"`
}

func (c *RateLimitConfig) defaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 30
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if len(c.ExcludePrefixes) == 0 {
		c.ExcludePrefixes = []string{"/healthz"}
	}
}

type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// RateLimiter enforces a per-IP fixed-window limit with in-memory buckets.
type RateLimiter struct {
	cfg     RateLimitConfig
	buckets sync.Map // ip -> *bucket
	log     *slog.Logger
	now     func() time.Time
}

// NewRateLimiter creates a limiter. Call StartGC for long-running servers so
// idle buckets are collected.
func NewRateLimiter(cfg RateLimitConfig, log *slog.Logger) *RateLimiter {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{cfg: cfg, log: log, now: time.Now}
}

// StartGC collects expired buckets every five minutes until done is closed.
func (rl *RateLimiter) StartGC(done <-chan struct{}) {
	tick := time.NewTicker(5 * time.Minute)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				rl.gc()
			}
		}
	}()
}

func (rl *RateLimiter) gc() {
	now := rl.now()
	rl.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		expired := now.After(b.resetAt)
		b.mu.Unlock()
		if expired {
			rl.buckets.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	now := rl.now()
	val, _ := rl.buckets.LoadOrStore(ip, &bucket{resetAt: now.Add(rl.cfg.Window)})
	b := val.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()
	if now.After(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(rl.cfg.Window)
	}
	b.count++
	return b.count <= rl.cfg.MaxRequests
}

// Middleware enforces the limit, answering 429 with a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.cfg.MaxRequests < 0 {
			next.ServeHTTP(w, r)
			return
		}
		for _, prefix := range rl.cfg.ExcludePrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ip := ExtractIP(r)
		if rl.allow(ip) {
			next.ServeHTTP(w, r)
			return
		}
		rl.log.Warn("shield: request rate limited", "ip", ip, "path", r.URL.Path)
		writeTooMany(w)
	})
}
