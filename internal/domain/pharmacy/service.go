package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ErrInvalidQuantity is returned before any database call when a restock or
// sale quantity is not strictly positive.
var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

type Service struct {
	medications MedicationRepository
	sales       SaleRepository
}

func NewService(medications MedicationRepository, sales SaleRepository) *Service {
	return &Service{medications: medications, sales: sales}
}

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.UnitPrice < 0 || m.CostPrice < 0 {
		return fmt.Errorf("prices cannot be negative")
	}
	if m.StockQuantity < 0 {
		return fmt.Errorf("stock_quantity cannot be negative")
	}
	return s.medications.Create(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.UnitPrice < 0 || m.CostPrice < 0 {
		return fmt.Errorf("prices cannot be negative")
	}
	return s.medications.Update(ctx, m)
}

func (s *Service) ListMedications(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, search, limit, offset)
}

// Restock validates the quantity before touching the database. The backend
// procedure rejects non-positive quantities too, but a malformed request
// should never cost a round trip.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, quantity int, reason string, restockedBy uuid.UUID) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.medications.Restock(ctx, id, quantity, reason, restockedBy)
}

func (s *Service) RecordSale(ctx context.Context, in SaleInput, soldBy uuid.UUID) (*Sale, error) {
	if in.MedicationID == uuid.Nil {
		return nil, fmt.Errorf("medication_id is required")
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	sale := &Sale{
		SaleNumber:   ulid.Make().String(),
		MedicationID: in.MedicationID,
		Quantity:     in.Quantity,
		SoldBy:       soldBy,
	}
	if err := s.sales.Record(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit, offset int) ([]*Sale, int, error) {
	return s.sales.List(ctx, limit, offset)
}
