package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type fakeProfileRepo struct {
	byID map[uuid.UUID]*Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byID: make(map[uuid.UUID]*Profile)}
}

func (f *fakeProfileRepo) Create(_ context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) GetByPrincipalID(_ context.Context, principalID uuid.UUID) (*Profile, error) {
	for _, p := range f.byID {
		if p.PrincipalID == principalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*Profile, error) {
	for _, p := range f.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProfileRepo) Update(_ context.Context, p *Profile) error {
	if _, ok := f.byID[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProfileRepo) UpdateRole(_ context.Context, id uuid.UUID, role auth.Role) error {
	p, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Role = role
	return nil
}

func (f *fakeProfileRepo) List(_ context.Context, limit, offset int) ([]*Profile, int, error) {
	var items []*Profile
	for _, p := range f.byID {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(f.byID), nil
}

var testSecret = []byte("ssssssssssssssssssssssssssssssss")

func newTestService(repo ProfileRepository) *Service {
	issuer := auth.NewTokenIssuer(testSecret, "clinicdesk")
	store := auth.NewMemoryRevocationStore()
	return NewService(repo, issuer, store)
}

func TestSignup_DefaultsToPatientRole(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())

	p, pair, err := svc.Signup(context.Background(), SignupInput{
		Email:    "new@clinic.test",
		Password: "hunter2hunter2",
		FullName: "New Patient",
	}, "default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != auth.RolePatient {
		t.Errorf("expected patient role, got %s", p.Role)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected token pair issued on signup")
	}
}

func TestSignup_Validation(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	ctx := context.Background()

	cases := []SignupInput{
		{Email: "", Password: "hunter2hunter2", FullName: "X"},
		{Email: "no-at-sign", Password: "hunter2hunter2", FullName: "X"},
		{Email: "a@b.test", Password: "short", FullName: "X"},
		{Email: "a@b.test", Password: "hunter2hunter2", FullName: "  "},
	}
	for i, in := range cases {
		if _, _, err := svc.Signup(ctx, in, "default"); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	ctx := context.Background()

	in := SignupInput{Email: "dup@clinic.test", Password: "hunter2hunter2", FullName: "First"}
	if _, _, err := svc.Signup(ctx, in, "default"); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	if _, _, err := svc.Signup(ctx, in, "default"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin_RoundTrip(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, SignupInput{
		Email: "doc@clinic.test", Password: "hunter2hunter2", FullName: "Doc",
	}, "default"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	p, pair, err := svc.Login(ctx, "doc@clinic.test", "hunter2hunter2", "default")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if p.Email != "doc@clinic.test" {
		t.Errorf("unexpected profile: %s", p.Email)
	}
	if pair.AccessToken == "" {
		t.Error("expected access token")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	ctx := context.Background()

	svc.Signup(ctx, SignupInput{Email: "x@y.test", Password: "hunter2hunter2", FullName: "X"}, "default")

	if _, _, err := svc.Login(ctx, "x@y.test", "wrong-password", "default"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@y.test", "hunter2hunter2", "default"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestResolveRole_MissingProfile(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())

	_, err := svc.ResolveRole(context.Background(), uuid.New())
	if !errors.Is(err, auth.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestResolveRole_ReflectsMutation(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	p, _, err := svc.Signup(ctx, SignupInput{
		Email: "promo@clinic.test", Password: "hunter2hunter2", FullName: "P",
	}, "default")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	role, err := svc.ResolveRole(ctx, p.PrincipalID)
	if err != nil || role != auth.RolePatient {
		t.Fatalf("expected patient, got %s (%v)", role, err)
	}

	if err := svc.ChangeRole(ctx, p.ID, auth.RoleDoctor); err != nil {
		t.Fatalf("change role failed: %v", err)
	}

	role, err = svc.ResolveRole(ctx, p.PrincipalID)
	if err != nil || role != auth.RoleDoctor {
		t.Errorf("expected promotion visible on next resolve, got %s (%v)", role, err)
	}
}

func TestRefresh_RotatesAndRevokes(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	ctx := context.Background()

	_, pair, err := svc.Signup(ctx, SignupInput{
		Email: "r@clinic.test", Password: "hunter2hunter2", FullName: "R",
	}, "default")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	newPair, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if newPair.AccessToken == pair.AccessToken {
		t.Error("expected a new access token")
	}

	// The spent refresh token must not work a second time.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected spent refresh token rejected, got %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	ctx := context.Background()

	_, pair, _ := svc.Signup(ctx, SignupInput{
		Email: "a@clinic.test", Password: "hunter2hunter2", FullName: "A",
	}, "default")

	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected access token rejected by refresh, got %v", err)
	}
}

func TestChangeRole_RejectsUnknownRole(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	p, _, _ := svc.Signup(ctx, SignupInput{
		Email: "c@clinic.test", Password: "hunter2hunter2", FullName: "C",
	}, "default")

	if err := svc.ChangeRole(ctx, p.ID, auth.Role("superuser")); err == nil {
		t.Error("expected unknown role rejected")
	}
}
