package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/monocontact/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func newLimitedRouter(limit int, window time.Duration) *gin.Engine {
	rl := middlewares.NewRateLimiter(limit, window, nil)

	r := gin.New()
	r.GET("/limited", rl.RateLimiterMiddleware(middlewares.KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return r
}

func hitFrom(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BlocksAboveTheLimit(t *testing.T) {
	r := newLimitedRouter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if w := hitFrom(r, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d inside the limit: got %d", i, w.Code)
		}
	}

	w := hitFrom(r, "10.0.0.1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("429 must carry a Retry-After header")
	}
}

func TestRateLimiter_BucketsAreIsolatedPerKey(t *testing.T) {
	r := newLimitedRouter(1, time.Minute)

	if w := hitFrom(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first client: got %d", w.Code)
	}
	if w := hitFrom(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first client over limit: got %d", w.Code)
	}

	// a different source address has its own window
	if w := hitFrom(r, "10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("second client: got %d", w.Code)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	r := newLimitedRouter(1, 20*time.Millisecond)

	if w := hitFrom(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first request: got %d", w.Code)
	}
	if w := hitFrom(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d", w.Code)
	}

	time.Sleep(30 * time.Millisecond)

	if w := hitFrom(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("request after window reset: got %d", w.Code)
	}
}
