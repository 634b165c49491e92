package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const sessionKey contextKey = "session"

// AccessDeniedMessage is the uniform body returned on every authentication or
// authorization failure. It deliberately carries no detail about which roles
// or credentials would have been accepted.
const AccessDeniedMessage = "Access denied"

// ErrUnauthenticated is returned by RequireSession when no valid session is
// bound to the request context.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session is the authenticated principal for the current request. Absence of
// a session is a valid state, not an error; handlers that need identity call
// RequireSession.
type Session struct {
	PrincipalID  uuid.UUID
	TenantID     string
	JTI          string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Claims is the JWT claim set carried by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	TenantID  string `json:"tenant_id,omitempty"`
	TokenType string `json:"type"`
}

// MiddlewareConfig configures SessionMiddleware.
type MiddlewareConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 validation for standalone deployments.
	SigningKey []byte
	// Revocations, when set, rejects tokens whose JTI has been revoked.
	Revocations RevocationStore
	// Skipper bypasses session parsing for public paths.
	Skipper func(echo.Context) bool
}

// SessionMiddleware resolves the current session from the Authorization
// header or the access_token cookie. A request without credentials proceeds
// anonymously; the access guard decides whether that is acceptable. A request
// with an invalid, expired, revoked, or non-access token fails with 401.
func SessionMiddleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	// Resolve JWKS URL: if not explicitly set, try OIDC auto-discovery from issuer.
	resolvedJWKSURL := cfg.JWKSURL
	if resolvedJWKSURL == "" && cfg.Issuer != "" && len(cfg.SigningKey) == 0 {
		provider, err := NewOIDCProvider(cfg.Issuer)
		if err == nil {
			resolvedJWKSURL = provider.JWKSURI
		}
	}

	var keyFunc jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(t *jwt.Token) (interface{}, error) {
			return cfg.SigningKey, nil
		}
	} else {
		keyFunc = jwksKeyFunc(resolvedJWKSURL)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr := bearerToken(c)
			if tokenStr == "" {
				// Anonymous request; gated routes reject it downstream.
				return next(c)
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256", "HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, AccessDeniedMessage)
			}
			if claims.TokenType != TokenTypeAccess {
				return echo.NewHTTPError(http.StatusUnauthorized, AccessDeniedMessage)
			}
			if cfg.Revocations != nil && claims.ID != "" && cfg.Revocations.IsRevoked(c.Request().Context(), claims.ID) {
				return echo.NewHTTPError(http.StatusUnauthorized, AccessDeniedMessage)
			}

			principalID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, AccessDeniedMessage)
			}

			sess := &Session{
				PrincipalID: principalID,
				TenantID:    claims.TenantID,
				JTI:         claims.ID,
				AccessToken: tokenStr,
			}
			if claims.ExpiresAt != nil {
				sess.ExpiresAt = claims.ExpiresAt.Time
			}
			if rt, err := c.Cookie("refresh_token"); err == nil {
				sess.RefreshToken = rt.Value
			}

			// Tenant claim feeds the tenant middleware further down the chain.
			c.Set("jwt_tenant_id", claims.TenantID)

			ctx := context.WithValue(c.Request().Context(), sessionKey, sess)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// bearerToken extracts the access token from the Authorization header or,
// failing that, the access_token cookie set by browser clients.
func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// CurrentSession returns the session bound to the context, if any. A missing
// session is an expected state and is not an error.
func CurrentSession(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok
}

// RequireSession returns the current session or ErrUnauthenticated. Used by
// every route that has no legitimate anonymous path.
func RequireSession(ctx context.Context) (*Session, error) {
	sess, ok := CurrentSession(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// WithSession returns a context carrying the given session. Intended for
// tests and for the development middleware.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// DevAuthMiddleware is a permissive middleware for development that allows
// unauthenticated requests with a default admin session.
func DevAuthMiddleware() echo.MiddlewareFunc {
	devPrincipal := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentSession(c.Request().Context()); ok {
				return next(c)
			}
			c.Set("jwt_tenant_id", "default")
			sess := &Session{PrincipalID: devPrincipal, TenantID: "default"}
			ctx := WithSession(c.Request().Context(), sess)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// JWKSKey represents a single JSON Web Key from a JWKS endpoint.
type JWKSKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse represents the response from a JWKS endpoint.
type JWKSResponse struct {
	Keys []JWKSKey `json:"keys"`
}

// JWKSCache caches JWKS keys fetched from a remote endpoint with a configurable TTL.
type JWKSCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	jwksURL   string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

// NewJWKSCache creates a new JWKS cache that fetches keys from the given URL.
func NewJWKSCache(jwksURL string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		keys:    make(map[string]*rsa.PublicKey),
		jwksURL: jwksURL,
		ttl:     ttl,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the RSA public key for the given kid.
// It fetches keys from the JWKS endpoint if the cache is expired or if the kid is not found.
func (c *JWKSCache) GetKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	if err := c.fetch(); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

// fetch retrieves the JWKS from the remote endpoint and updates the cache.
func (c *JWKSCache) fetch() error {
	resp, err := c.client.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKSResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k)
		if err != nil {
			continue // skip malformed keys
		}
		keys[k.Kid] = pubKey
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return nil
}

// parseRSAPublicKey converts a JWKSKey to an *rsa.PublicKey.
func parseRSAPublicKey(k JWKSKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// defaultJWKSCacheTTL is the default time-to-live for cached JWKS keys.
const defaultJWKSCacheTTL = 5 * time.Minute

// jwksKeyFunc returns a jwt.Keyfunc that fetches public keys from a JWKS endpoint.
// Keys are cached in memory and automatically refreshed on cache miss or TTL expiry.
func jwksKeyFunc(jwksURL string) jwt.Keyfunc {
	cache := NewJWKSCache(jwksURL, defaultJWKSCacheTTL)
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return cache.GetKey(kid)
	}
}
