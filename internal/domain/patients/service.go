package patients

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, search, limit, offset)
}
