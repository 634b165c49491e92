package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPair is the credential pair issued at login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenIssuer signs and verifies HS256 token pairs for standalone
// deployments. External-issuer deployments skip this entirely and validate
// against the provider's JWKS instead.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret []byte, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
}

// Issue signs a fresh access/refresh pair for the principal. Each token gets
// its own JTI so access and refresh tokens revoke independently.
func (i *TokenIssuer) Issue(principalID uuid.UUID, tenantID string) (*TokenPair, error) {
	access, err := i.sign(principalID, tenantID, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(principalID, tenantID, TokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *TokenIssuer) sign(principalID uuid.UUID, tenantID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID.String(),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID:  tenantID,
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies a token's signature and expiry and checks that its type
// claim matches wantType. A refresh token presented where an access token is
// expected (or vice versa) is rejected.
func (i *TokenIssuer) Parse(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("expected %s token, got %s", wantType, claims.TokenType)
	}
	return claims, nil
}
