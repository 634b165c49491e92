package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication and tenant
// resolution: infrastructure endpoints and the credential-issuing endpoints
// themselves, which must be reachable without a bearer token.
var publicPaths = map[string]bool{
	"/health":               true,
	"/health/db":            true,
	"/metrics":              true,
	"/api/v1/auth/signup":   true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/refresh":  true,
}

// AuthSkipper returns true for requests whose path should skip session
// parsing. Pass it as the Skipper on MiddlewareConfig so health checks,
// metrics, and login stay accessible without credentials.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path is a public endpoint that
// bypasses auth and tenant middleware.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
