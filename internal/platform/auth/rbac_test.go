package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestAuthorize_ExactMembership(t *testing.T) {
	allowed := []Role{RoleAdmin, RolePharmacist}

	if !Authorize(RoleAdmin, allowed) {
		t.Error("admin should be granted")
	}
	if !Authorize(RolePharmacist, allowed) {
		t.Error("pharmacist should be granted")
	}
	if Authorize(RoleDoctor, allowed) {
		t.Error("doctor should be denied")
	}
	if Authorize(RolePatient, allowed) {
		t.Error("patient should be denied")
	}
}

func TestAuthorize_NoAdminHierarchy(t *testing.T) {
	// Admin is granted only where the policy lists it explicitly.
	if Authorize(RoleAdmin, []Role{RoleDoctor}) {
		t.Error("admin must not implicitly satisfy a doctor-only policy")
	}
	if Authorize(RoleAdmin, []Role{RolePatient}) {
		t.Error("admin must not implicitly satisfy a patient-only policy")
	}
}

func TestAuthorize_CaseSensitive(t *testing.T) {
	if Authorize(Role("Admin"), []Role{RoleAdmin}) {
		t.Error("role comparison must be case-sensitive")
	}
}

func TestAuthorize_PolicyMatrix(t *testing.T) {
	// Exhaustive 4-role check over every registered policy.
	expected := map[string]map[Role]bool{
		"audit.read":          {RoleAdmin: true},
		"reports.read":        {RoleAdmin: true, RolePharmacist: true},
		"pharmacy.read":       {RoleAdmin: true, RolePharmacist: true},
		"pharmacy.write":      {RoleAdmin: true, RolePharmacist: true},
		"pharmacy.restock":    {RoleAdmin: true, RolePharmacist: true},
		"sales.read":          {RoleAdmin: true, RolePharmacist: true},
		"sales.write":         {RoleAdmin: true, RolePharmacist: true},
		"patients.read":       {RoleAdmin: true, RoleDoctor: true},
		"patients.write":      {RoleAdmin: true, RoleDoctor: true},
		"appointments.book":   {RoleAdmin: true, RoleDoctor: true, RolePatient: true},
		"appointments.read":   {RoleAdmin: true, RoleDoctor: true, RolePharmacist: true, RolePatient: true},
		"appointments.manage": {RoleAdmin: true, RoleDoctor: true},
		"users.manage":        {RoleAdmin: true},
	}

	if len(expected) != len(Policies) {
		t.Fatalf("policy table has %d operations, test expects %d", len(Policies), len(expected))
	}

	for op, grants := range expected {
		allowed, ok := Policies[op]
		if !ok {
			t.Errorf("missing policy for %s", op)
			continue
		}
		if len(allowed) == 0 {
			t.Errorf("policy for %s is empty", op)
		}
		for _, role := range AllRoles {
			got := Authorize(role, allowed)
			want := grants[role]
			if got != want {
				t.Errorf("%s: role %s granted=%v, want %v", op, role, got, want)
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "doctor", "pharmacist", "patient"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("unexpected error for %s: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "Admin", "superuser", "nurse"} {
		if _, err := ParseRole(invalid); err == nil {
			t.Errorf("expected error for %q", invalid)
		}
	}
}

type fakeResolver struct {
	roles map[uuid.UUID]Role
	err   error
	calls int
}

func (f *fakeResolver) ResolveRole(_ context.Context, principalID uuid.UUID) (Role, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	role, ok := f.roles[principalID]
	if !ok {
		return "", ErrProfileNotFound
	}
	return role, nil
}

func guardRequest(t *testing.T, g *Guard, operation string, sess *Session) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sess != nil {
		req = req.WithContext(WithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := g.Require(operation)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestGuard_NoSession(t *testing.T) {
	g := NewGuard(&fakeResolver{}, zerolog.Nop())
	rec := guardRequest(t, g, "audit.read", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestGuard_ProfileMissing(t *testing.T) {
	g := NewGuard(&fakeResolver{roles: map[uuid.UUID]Role{}}, zerolog.Nop())
	rec := guardRequest(t, g, "audit.read", &Session{PrincipalID: uuid.New()})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for missing profile, got %d", rec.Code)
	}
}

func TestGuard_ResolverBackendError(t *testing.T) {
	g := NewGuard(&fakeResolver{err: errors.New("connection refused")}, zerolog.Nop())
	rec := guardRequest(t, g, "audit.read", &Session{PrincipalID: uuid.New()})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for backend failure, got %d", rec.Code)
	}
}

func TestGuard_RoleDenied(t *testing.T) {
	pid := uuid.New()
	g := NewGuard(&fakeResolver{roles: map[uuid.UUID]Role{pid: RolePatient}}, zerolog.Nop())
	rec := guardRequest(t, g, "reports.read", &Session{PrincipalID: pid})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestGuard_RoleGranted(t *testing.T) {
	pid := uuid.New()
	g := NewGuard(&fakeResolver{roles: map[uuid.UUID]Role{pid: RolePharmacist}}, zerolog.Nop())
	rec := guardRequest(t, g, "reports.read", &Session{PrincipalID: pid})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGuard_DenialDoesNotLeakRoles(t *testing.T) {
	pid := uuid.New()
	g := NewGuard(&fakeResolver{roles: map[uuid.UUID]Role{pid: RolePatient}}, zerolog.Nop())
	rec := guardRequest(t, g, "users.manage", &Session{PrincipalID: pid})
	body := rec.Body.String()
	for _, role := range AllRoles {
		if role == RolePatient {
			continue
		}
		if strings.Contains(body, string(role)) {
			t.Errorf("denial body leaks allowed role %s: %s", role, body)
		}
	}
}

func TestGuard_ResolvesFreshRoleEachRequest(t *testing.T) {
	pid := uuid.New()
	resolver := &fakeResolver{roles: map[uuid.UUID]Role{pid: RolePatient}}
	g := NewGuard(resolver, zerolog.Nop())

	rec := guardRequest(t, g, "patients.read", &Session{PrincipalID: pid})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before promotion, got %d", rec.Code)
	}

	// Promote externally; the very next request must see the new role.
	resolver.roles[pid] = RoleDoctor
	rec = guardRequest(t, g, "patients.read", &Session{PrincipalID: pid})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 after promotion, got %d", rec.Code)
	}
	if resolver.calls != 2 {
		t.Errorf("expected 2 resolver calls (no caching), got %d", resolver.calls)
	}
}

func TestGuard_UnknownOperationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unregistered operation")
		}
	}()
	g := NewGuard(&fakeResolver{}, zerolog.Nop())
	g.Require("nonexistent.operation")
}

func TestGuard_RequireAuthenticated(t *testing.T) {
	g := NewGuard(&fakeResolver{}, zerolog.Nop())
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := g.RequireAuthenticated()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithSession(req.Context(), &Session{PrincipalID: uuid.New()}))
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with session, got %d", rec.Code)
	}
}

func TestRoleFromContext(t *testing.T) {
	if _, ok := RoleFromContext(context.Background()); ok {
		t.Error("expected no role on empty context")
	}
	ctx := WithRole(context.Background(), RoleDoctor)
	role, ok := RoleFromContext(ctx)
	if !ok || role != RoleDoctor {
		t.Errorf("expected doctor, got %s ok=%v", role, ok)
	}
}
