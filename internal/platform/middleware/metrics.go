package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicdesk_http_requests_total",
		Help: "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinicdesk_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	authzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicdesk_authz_denials_total",
		Help: "Authorization denials by route.",
	}, []string{"route"})
)

// Metrics returns middleware that records request counts and latencies. The
// route label uses the echo route pattern, not the raw path, to keep label
// cardinality bounded.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			requestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			requestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			if status == 403 {
				authzDenials.WithLabelValues(route).Inc()
			}

			return err
		}
	}
}
