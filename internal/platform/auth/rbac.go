package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Role is the application-level role stored on a principal's profile.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RolePatient    Role = "patient"
)

// AllRoles lists every valid role, in no particular order.
var AllRoles = []Role{RoleAdmin, RoleDoctor, RolePharmacist, RolePatient}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePharmacist, RolePatient:
		return true
	}
	return false
}

// ErrProfileNotFound is returned by a RoleResolver when the principal exists
// in the auth store but has no profile row. This is a data inconsistency and
// is kept distinct from "role present but insufficient"; both surface to the
// caller as a 403, but they are logged differently.
var ErrProfileNotFound = errors.New("profile not found")

// RoleResolver looks up the live role for a principal. Implementations must
// hit current storage on every call: a role change is required to take effect
// on the very next request, so no caching happens at this layer.
type RoleResolver interface {
	ResolveRole(ctx context.Context, principalID uuid.UUID) (Role, error)
}

// Authorize reports whether role is a member of allowed. Membership is exact
// and case-sensitive; there is no role hierarchy. Admin access to an
// operation exists only where the policy lists admin explicitly.
func Authorize(role Role, allowed []Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// Policies is the single declarative access-policy table: operation name to
// allowed role set. Route groups consult it through Guard.Require, so a
// policy is defined in exactly one place per operation. Guard.Require panics
// at route-registration time on an operation missing from this table, which
// keeps "every gated route has a non-empty policy" a startup invariant
// rather than a runtime surprise.
var Policies = map[string][]Role{
	"audit.read": {RoleAdmin},

	"reports.read": {RoleAdmin, RolePharmacist},

	"pharmacy.read":    {RoleAdmin, RolePharmacist},
	"pharmacy.write":   {RoleAdmin, RolePharmacist},
	"pharmacy.restock": {RoleAdmin, RolePharmacist},
	"sales.read":       {RoleAdmin, RolePharmacist},
	"sales.write":      {RoleAdmin, RolePharmacist},

	"patients.read":  {RoleAdmin, RoleDoctor},
	"patients.write": {RoleAdmin, RoleDoctor},

	"appointments.book":   {RoleAdmin, RoleDoctor, RolePatient},
	"appointments.read":   {RoleAdmin, RoleDoctor, RolePharmacist, RolePatient},
	"appointments.manage": {RoleAdmin, RoleDoctor},

	"users.manage": {RoleAdmin},
}

// roleKey carries the resolved role through the request context once the
// guard has admitted the request.
const roleKey contextKey = "role"

// RoleFromContext returns the role resolved by the access guard for the
// current request, or false when the request was not role-gated.
func RoleFromContext(ctx context.Context) (Role, bool) {
	r, ok := ctx.Value(roleKey).(Role)
	return r, ok
}

// WithRole returns a context carrying the given role. Intended for tests.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// Guard is the shared access guard consulted by every gated route group. It
// resolves the caller's session, fetches the live role from the profile
// store, and checks it against the operation's policy. All failures produce
// the uniform Access denied body.
type Guard struct {
	resolver RoleResolver
	logger   zerolog.Logger
}

func NewGuard(resolver RoleResolver, logger zerolog.Logger) *Guard {
	return &Guard{resolver: resolver, logger: logger}
}

// Require returns middleware enforcing the named operation's policy.
// Sequence: session, role, authorize; the first failure short-circuits.
// Authorization failures are terminal and never retried.
func (g *Guard) Require(operation string) echo.MiddlewareFunc {
	allowed, ok := Policies[operation]
	if !ok || len(allowed) == 0 {
		panic(fmt.Sprintf("auth: no access policy registered for operation %q", operation))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			sess, err := RequireSession(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, AccessDeniedMessage)
			}

			role, err := g.resolver.ResolveRole(ctx, sess.PrincipalID)
			if err != nil {
				if errors.Is(err, ErrProfileNotFound) {
					g.logger.Warn().
						Str("principal_id", sess.PrincipalID.String()).
						Str("operation", operation).
						Msg("principal has no profile row")
					return echo.NewHTTPError(http.StatusForbidden, AccessDeniedMessage)
				}
				g.logger.Error().Err(err).
					Str("principal_id", sess.PrincipalID.String()).
					Msg("role resolution failed")
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}

			if !Authorize(role, allowed) {
				g.logger.Info().
					Str("principal_id", sess.PrincipalID.String()).
					Str("role", string(role)).
					Str("operation", operation).
					Msg("access denied")
				return echo.NewHTTPError(http.StatusForbidden, AccessDeniedMessage)
			}

			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, roleKey, role)))
			return next(c)
		}
	}
}

// RequireAuthenticated returns middleware that admits any principal with a
// valid session, without a role check. Used by endpoints like the session
// token echo and receipt generation where identity alone suffices.
func (g *Guard) RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := RequireSession(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, AccessDeniedMessage)
			}
			return next(c)
		}
	}
}
