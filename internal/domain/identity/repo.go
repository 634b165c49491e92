package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByPrincipalID(ctx context.Context, principalID uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) error
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
}
