package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

type Service struct {
	profiles    ProfileRepository
	issuer      *auth.TokenIssuer
	revocations auth.RevocationStore
}

func NewService(profiles ProfileRepository, issuer *auth.TokenIssuer, revocations auth.RevocationStore) *Service {
	return &Service{profiles: profiles, issuer: issuer, revocations: revocations}
}

// ResolveRole looks the principal's role up on every call. No caching: a
// promotion or demotion committed elsewhere is visible on the next request.
func (s *Service) ResolveRole(ctx context.Context, principalID uuid.UUID) (auth.Role, error) {
	p, err := s.profiles.GetByPrincipalID(ctx, principalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrProfileNotFound
		}
		return "", fmt.Errorf("resolve role: %w", err)
	}
	if !p.Role.Valid() {
		return "", fmt.Errorf("profile %s carries unknown role %q", p.ID, p.Role)
	}
	return p.Role, nil
}

func (s *Service) Signup(ctx context.Context, in SignupInput, tenantID string) (*Profile, *auth.TokenPair, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, nil, fmt.Errorf("valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, nil, fmt.Errorf("password must be at least 8 characters")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, nil, fmt.Errorf("full_name is required")
	}

	if _, err := s.profiles.GetByEmail(ctx, in.Email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	p := &Profile{
		PrincipalID:  uuid.New(),
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		PhoneNumber:  in.PhoneNumber,
		Role:         auth.RolePatient,
		PasswordHash: string(hash),
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuer.Issue(p.PrincipalID, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return p, pair, nil
}

func (s *Service) Login(ctx context.Context, email, password, tenantID string) (*Profile, *auth.TokenPair, error) {
	p, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(p.PrincipalID, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return p, pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The used
// refresh token's JTI is revoked so each refresh token works exactly once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.issuer.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.revocations != nil && s.revocations.IsRevoked(ctx, claims.ID) {
		return nil, ErrInvalidCredentials
	}

	principalID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(principalID, claims.TenantID)
	if err != nil {
		return nil, err
	}
	if s.revocations != nil && claims.ExpiresAt != nil {
		_ = s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	}
	return pair, nil
}

// Logout revokes the session's access token and, when present, the refresh
// token. Revocations live until each token's natural expiry.
func (s *Service) Logout(ctx context.Context, sess *auth.Session) error {
	if s.revocations == nil {
		return nil
	}
	if sess.JTI != "" {
		if err := s.revocations.Revoke(ctx, sess.JTI, sess.ExpiresAt); err != nil {
			return err
		}
	}
	if sess.RefreshToken != "" {
		if claims, err := s.issuer.Parse(sess.RefreshToken, auth.TokenTypeRefresh); err == nil && claims.ExpiresAt != nil {
			if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				return err
			}
		}
	}
	return nil
}

// -- admin user management --

func (s *Service) ListProfiles(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.profiles.List(ctx, limit, offset)
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		if strings.TrimSpace(*in.FullName) == "" {
			return nil, fmt.Errorf("full_name cannot be empty")
		}
		p.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.PhoneNumber != nil {
		p.PhoneNumber = in.PhoneNumber
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ChangeRole sets a profile's role. The change takes effect on the target's
// next request because roles are resolved per request, never cached.
func (s *Service) ChangeRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	return s.profiles.UpdateRole(ctx, id, role)
}
