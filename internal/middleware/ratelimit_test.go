package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestRateLimiter(t *testing.T, config RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)
	return rl
}

func doAuthedRequest(handler http.Handler, username string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", nil)
	req = req.WithContext(ContextWithUsername(req.Context(), username))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_SubmitLimitEnforced(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralPerMinute: 120,
		SubmitPerMinute:  3,
		CleanupInterval:  time.Minute,
	})
	handler := rl.SubmitMiddleware()(okHandler())

	// バースト分は通る
	for i := 0; i < 3; i++ {
		if rec := doAuthedRequest(handler, "alice"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	// バーストを使い切ると429
	rec := doAuthedRequest(handler, "alice")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
	if retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want positive integer", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_UsersAreIndependent(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralPerMinute: 120,
		SubmitPerMinute:  1,
		CleanupInterval:  time.Minute,
	})
	handler := rl.SubmitMiddleware()(okHandler())

	if rec := doAuthedRequest(handler, "alice"); rec.Code != http.StatusOK {
		t.Fatalf("alice first request: status = %d", rec.Code)
	}
	if rec := doAuthedRequest(handler, "alice"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("alice second request: status = %d, want 429", rec.Code)
	}

	// bobはaliceの消費に影響されない
	if rec := doAuthedRequest(handler, "bob"); rec.Code != http.StatusOK {
		t.Errorf("bob first request: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_GeneralAndSubmitAreIndependent(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralPerMinute: 120,
		SubmitPerMinute:  1,
		CleanupInterval:  time.Minute,
	})
	submitHandler := rl.SubmitMiddleware()(okHandler())
	generalHandler := rl.GeneralMiddleware()(okHandler())

	// 送信リミットを使い切る
	doAuthedRequest(submitHandler, "alice")
	if rec := doAuthedRequest(submitHandler, "alice"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("submit limit not enforced: status = %d", rec.Code)
	}

	// API全般のリミットには影響しない
	if rec := doAuthedRequest(generalHandler, "alice"); rec.Code != http.StatusOK {
		t.Errorf("general request: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_RequiresAuthenticatedContext(t *testing.T) {
	rl := newTestRateLimiter(t, DefaultRateLimiterConfig())
	handler := rl.GeneralMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimiterConfig{
		GeneralPerMinute: 120,
		SubmitPerMinute:  10,
		CleanupInterval:  time.Minute,
	})

	handler := rl.GeneralMiddleware()(okHandler())
	doAuthedRequest(handler, "alice")
	doAuthedRequest(handler, "bob")

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Fatalf("limiter count = %d, want 2", got)
	}

	// TTL（CleanupInterval*2）を超えたエントリが削除される
	rl.general.cleanup(time.Now().Add(3*time.Minute), 2*time.Minute)

	if got := rl.GeneralLimiterCount(); got != 0 {
		t.Errorf("limiter count after cleanup = %d, want 0", got)
	}
}
