package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestIPRateLimiter_PerIPBuckets(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("1.1.1.1") || !l.Allow("1.1.1.1") {
		t.Fatal("burst not honoured")
	}
	if l.Allow("1.1.1.1") {
		t.Fatal("third request within burst allowed")
	}
	if !l.Allow("2.2.2.2") {
		t.Fatal("other IP throttled")
	}

	now = now.Add(2 * time.Hour)
	if !l.Allow("1.1.1.1") {
		t.Error("bucket did not refill")
	}
}

func TestIPRateLimiter_EvictsIdle(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("1.1.1.1")
	now = now.Add(time.Hour)
	l.Allow("2.2.2.2")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limiters["1.1.1.1"]; ok {
		t.Error("idle visitor not evicted")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(NewIPRateLimiter(rate.Every(time.Hour), 1)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

func TestPerMinute(t *testing.T) {
	if PerMinute(0) != rate.Inf {
		t.Error("zero budget should be unlimited")
	}
	if got := PerMinute(60); got != rate.Limit(1) {
		t.Errorf("PerMinute(60) = %v, want 1/s", got)
	}
}
