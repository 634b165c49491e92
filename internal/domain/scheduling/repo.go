package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error)
}
