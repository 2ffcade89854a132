package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request in the window should be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("clients are limited independently")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("new window should reset the counter")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("a")
	*now = now.Add(11 * time.Minute)
	rl.Allow("b")

	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("active clients = %d, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first request status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", rr.Code, rr.Header().Get("Retry-After"))
	}
}
