package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, limit int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerWindow: limit, Window: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllow_PerKeyWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("user:1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("user:1") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("user:2") {
		t.Fatal("other key throttled")
	}
	if got := rl.RetryAfter("user:1"); got != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", got)
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("user:1") {
		t.Fatal("request after window rejected")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 6 || m.Rejected != 1 || m.KeyCount != 2 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 1)
	rl.Allow("a")
	*now = now.Add(5 * time.Minute)
	rl.Allow("b")
	*now = now.Add(6 * time.Minute)

	rl.cleanupStaleEntries()

	if got := rl.ActiveKeys(); got != 1 {
		t.Fatalf("ActiveKeys = %d, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(r *http.Request) string { return r.Header.Get("X-User") }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", user)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := do("a"); code != http.StatusNoContent {
		t.Fatalf("first status = %d", code)
	}
	if code := do("a"); code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", code)
	}
	if code := do("b"); code != http.StatusNoContent {
		t.Fatalf("other user status = %d", code)
	}
}
