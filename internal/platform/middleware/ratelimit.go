package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds per-key rate limiters and evicts idle entries so the
// map does not grow without bound under address churn.
type limiterStore struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	cfg     RateLimitConfig
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	s := &limiterStore{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
	}
	go s.evictLoop()
	return s
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	cl, ok := s.clients[key]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.BurstSize),
		}
		s.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

func (s *limiterStore) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		for key, cl := range s.clients {
			if time.Since(cl.lastSeen) > 3*time.Minute {
				delete(s.clients, key)
			}
		}
		s.mu.Unlock()
	}
}

// RateLimit returns middleware enforcing a per-client request rate. The key
// is the client IP, prefixed with the tenant id when one is present so
// tenants behind a shared proxy do not contend for the same bucket.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if tid, ok := c.Get("jwt_tenant_id").(string); ok && tid != "" {
				key = tid + ":" + key
			}

			limiter := store.get(key)
			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64))
			if !limiter.Allow() {
				c.Response().Header().Set("Retry-After", "1")
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
