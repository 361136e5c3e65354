package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/equipdesk/backend/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
)

func rateLimitedRouter(l Limiter, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(RateLimit(l, m))
	router.POST("/auth/login", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return router
}

func sendFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRateLimit_AllowsNormalRequests(t *testing.T) {
	rl := NewRateLimiter(10, 10) // 10 rps, burst 10
	defer rl.Close()
	router := rateLimitedRouter(rl, nil)

	if w := sendFrom(router, "192.168.1.1:12345"); w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimit_BlocksExcessiveRequests(t *testing.T) {
	rl := NewRateLimiter(1, 2) // 1 rps, burst 2
	defer rl.Close()
	m := metrics.New(prometheus.NewRegistry())
	router := rateLimitedRouter(rl, m)

	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		last = sendFrom(router, "10.0.0.1:12345")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d after burst exceeded, got %d", http.StatusTooManyRequests, last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set on rejected requests")
	}
	if got := testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("/auth/login")); got < 1 {
		t.Errorf("rate_limited_total = %v, expected at least 1", got)
	}
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 1) // 1 rps, burst 1
	defer rl.Close()
	router := rateLimitedRouter(rl, nil)

	if w := sendFrom(router, "1.1.1.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("first request from IP1 should pass, got %d", w.Code)
	}
	if w := sendFrom(router, "1.1.1.1:1234"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request from IP1 should be limited, got %d", w.Code)
	}
	if w := sendFrom(router, "2.2.2.2:1234"); w.Code != http.StatusOK {
		t.Errorf("first request from IP2 should pass, got %d", w.Code)
	}
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	rl := NewRedisRateLimiter(client, 2, 10*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.Allow(ctx, "10.0.0.1")
		if err != nil || !allowed {
			t.Fatalf("request %d should pass: allowed=%v err=%v", i, allowed, err)
		}
	}

	allowed, retryAfter, err := rl.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third request in the window should be rejected")
	}
	if retryAfter <= 0 || retryAfter > 10*time.Second {
		t.Errorf("retryAfter = %v, expected within the window", retryAfter)
	}

	// Other keys have their own counter
	if allowed, _, _ := rl.Allow(ctx, "10.0.0.2"); !allowed {
		t.Error("a different key should not be limited")
	}

	mr.FastForward(11 * time.Second)
	if allowed, _, _ := rl.Allow(ctx, "10.0.0.1"); !allowed {
		t.Error("a new window should allow the key again")
	}
}

func TestRedisRateLimiter_Middleware(t *testing.T) {
	_, client := newMiniRedisClient(t)
	router := rateLimitedRouter(NewRedisRateLimiter(client, 1, time.Minute), nil)

	if w := sendFrom(router, "3.3.3.3:1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w := sendFrom(router, "3.3.3.3:1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, expected %q", got, "60")
	}
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	router := rateLimitedRouter(NewRedisRateLimiter(client, 1, time.Minute), nil)
	mr.Close()

	for i := 0; i < 3; i++ {
		if w := sendFrom(router, "4.4.4.4:1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 while redis is down, got %d", i, w.Code)
		}
	}
}

func TestRateLimiter_CleanupDropsIdleEntries(t *testing.T) {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      1,
		burst:    1,
		stop:     make(chan struct{}),
	}
	rl.getLimiter("idle")
	rl.limiters["idle"].lastSeen = time.Now().Add(-time.Hour)
	rl.getLimiter("fresh")

	go rl.cleanup(10*time.Millisecond, time.Minute)
	defer rl.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rl.mu.Lock()
		_, idle := rl.limiters["idle"]
		_, fresh := rl.limiters["fresh"]
		rl.mu.Unlock()
		if !idle {
			if !fresh {
				t.Fatal("fresh entry should be kept")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("idle entry was not removed")
}
