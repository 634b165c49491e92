package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// identityApp wires the handler behind the real session middleware and guard
// so tests exercise the same chain as production requests.
func identityApp(svc *Service) *echo.Echo {
	e := echo.New()
	e.Use(auth.SessionMiddleware(auth.MiddlewareConfig{
		SigningKey:  testSecret,
		Revocations: svc.revocations,
		Skipper:     auth.AuthSkipper,
	}))
	guard := auth.NewGuard(svc, zerolog.New(os.Stderr))
	api := e.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api, guard)
	return e
}

func postJSON(e *echo.Echo, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSignupEndpoint(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	e := identityApp(svc)

	rec := postJSON(e, "/api/v1/auth/signup",
		`{"email":"p@clinic.test","password":"hunter2hunter2","full_name":"Pat"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected tokens in signup response")
	}
	if resp.Profile == nil || resp.Profile.Role != auth.RolePatient {
		t.Error("expected patient profile in signup response")
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password hash must not appear in the response")
	}
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	e := identityApp(svc)

	rec := postJSON(e, "/api/v1/auth/login",
		`{"email":"nobody@clinic.test","password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshEndpoint_MissingToken(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	e := identityApp(svc)

	rec := postJSON(e, "/api/v1/auth/refresh", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	e := identityApp(svc)

	// Anonymous request is rejected.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	signup := postJSON(e, "/api/v1/auth/signup",
		`{"email":"s@clinic.test","password":"hunter2hunter2","full_name":"S"}`, "")
	var tokens tokenResponse
	json.Unmarshal(signup.Body.Bytes(), &tokens)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp tokenResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.AccessToken != tokens.AccessToken {
		t.Error("expected current access token echoed back")
	}
}

func TestLogoutEndpoint_RevokesToken(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	e := identityApp(svc)

	signup := postJSON(e, "/api/v1/auth/signup",
		`{"email":"l@clinic.test","password":"hunter2hunter2","full_name":"L"}`, "")
	var tokens tokenResponse
	json.Unmarshal(signup.Body.Bytes(), &tokens)

	rec := postJSON(e, "/api/v1/auth/logout", "", tokens.AccessToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	// The revoked token no longer opens a session.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestUserManagement_RequiresAdmin(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	e := identityApp(svc)

	signup := postJSON(e, "/api/v1/auth/signup",
		`{"email":"pt@clinic.test","password":"hunter2hunter2","full_name":"Pt"}`, "")
	var tokens tokenResponse
	json.Unmarshal(signup.Body.Bytes(), &tokens)

	// A patient cannot list users.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for patient, got %d", rec.Code)
	}
}

func TestUserManagement_AdminChangesRole(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)
	e := identityApp(svc)

	admin, _, err := svc.Signup(context.Background(), SignupInput{
		Email: "admin@clinic.test", Password: "hunter2hunter2", FullName: "Admin",
	}, "default")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if err := svc.ChangeRole(context.Background(), admin.ID, auth.RoleAdmin); err != nil {
		t.Fatalf("seed admin failed: %v", err)
	}
	_, adminPair, err := svc.Login(context.Background(), "admin@clinic.test", "hunter2hunter2", "default")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}

	target, _, _ := svc.Signup(context.Background(), SignupInput{
		Email: "target@clinic.test", Password: "hunter2hunter2", FullName: "Target",
	}, "default")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+target.ID.String()+"/role",
		strings.NewReader(`{"role":"pharmacist"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	role, err := svc.ResolveRole(context.Background(), target.PrincipalID)
	if err != nil || role != auth.RolePharmacist {
		t.Errorf("expected pharmacist after change, got %s (%v)", role, err)
	}
}
