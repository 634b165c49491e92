package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func rateLimitEcho(cfg RateLimitConfig) *echo.Echo {
	e := echo.New()
	e.Use(RateLimit(cfg))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	e := rateLimitEcho(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	e := rateLimitEcho(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		last = httptest.NewRecorder()
		e.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst exhausted, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}

func TestRateLimit_SeparateKeysPerTenant(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}
	store := newLimiterStore(cfg)

	a := store.get("clinic_a:10.0.0.1")
	b := store.get("clinic_b:10.0.0.1")

	if !a.Allow() {
		t.Error("expected first request for clinic_a allowed")
	}
	if !b.Allow() {
		t.Error("expected first request for clinic_b allowed despite shared IP")
	}
	if a.Allow() {
		t.Error("expected clinic_a bucket exhausted")
	}
}

func TestRateLimit_SetsLimitHeader(t *testing.T) {
	e := rateLimitEcho(DefaultRateLimitConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Header().Get("X-RateLimit-Limit") != "100" {
		t.Errorf("expected limit header 100, got %s", rec.Header().Get("X-RateLimit-Limit"))
	}
}
