package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/eventgate/internal/guard"
	"github.com/hitoshi/eventgate/internal/model"
)

func newTestRateLimiter(t *testing.T, generalBurst, loginBurst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		LoginRate:       rate.Limit(0.001),
		LoginBurst:      loginBurst,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func authenticatedRequest(path, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	ctx := guard.ContextWithSession(req.Context(), &model.TokenPayload{
		UserID: userID,
		Email:  userID + "@example.com",
		Role:   model.RoleAdmin,
	})
	return req.WithContext(ctx)
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, 3, 10)
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authenticatedRequest("/admin/events", "user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestGeneralMiddleware_RejectsOverBurst(t *testing.T) {
	rl := newTestRateLimiter(t, 2, 10)
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authenticatedRequest("/admin/events", "user-1"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest("/admin/events", "user-1"))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

func TestGeneralMiddleware_IsolatesUsers(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 10)
	handler := rl.GeneralMiddleware()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest("/admin/events", "user-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("user-1 first request: status = %d", rec.Code)
	}

	// user-1が使い切ってもuser-2には影響しない
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest("/admin/events", "user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("user-1 second request: status = %d, want 429", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authenticatedRequest("/admin/events", "user-2"))
	if rec.Code != http.StatusOK {
		t.Errorf("user-2 request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", got)
	}
}

func TestGeneralMiddleware_FallsBackToClientIP(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 10)
	handler := rl.GeneralMiddleware()(okHandler())

	// 未認証リクエストは接続元IP単位で制限される
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = "10.0.0.1:54322"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("same IP second request: status = %d, want 429", rec.Code)
	}
}

func TestLoginMiddleware_PerIPIsolation(t *testing.T) {
	rl := newTestRateLimiter(t, 100, 2)
	handler := rl.LoginMiddleware()(okHandler())

	post := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := post("192.0.2.1"); got != http.StatusOK {
		t.Fatalf("first attempt: status = %d", got)
	}
	if got := post("192.0.2.1"); got != http.StatusOK {
		t.Fatalf("second attempt: status = %d", got)
	}
	if got := post("192.0.2.1"); got != http.StatusTooManyRequests {
		t.Errorf("third attempt: status = %d, want 429", got)
	}

	// 別IPは独立にカウントされる
	if got := post("192.0.2.2"); got != http.StatusOK {
		t.Errorf("other IP attempt: status = %d, want %d", got, http.StatusOK)
	}

	if got := rl.LoginLimiterCount(); got != 2 {
		t.Errorf("LoginLimiterCount() = %d, want 2", got)
	}
}

func TestLoginMiddleware_UsesForwardedFor(t *testing.T) {
	rl := newTestRateLimiter(t, 100, 1)
	handler := rl.LoginMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first attempt: status = %d", rec.Code)
	}

	// RemoteAddrが異なってもX-Forwarded-Forが同じなら同一クライアント扱い
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:2000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		LoginRate:       rate.Limit(1),
		LoginBurst:      1,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer rl.Stop()

	rl.getOrCreateGeneralLimiter("user-1")
	rl.getOrCreateLoginLimiter("192.0.2.1")

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Fatalf("GeneralLimiterCount() = %d, want 1", got)
	}

	// CleanupIntervalの2倍を待つとエントリが掃除される
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 && rl.LoginLimiterCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("expired entries were not cleaned up: general=%d login=%d",
		rl.GeneralLimiterCount(), rl.LoginLimiterCount())
}
