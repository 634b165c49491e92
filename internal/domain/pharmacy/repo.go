package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	List(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error)
	// Restock delegates to the restock_medication stored procedure, which
	// increments stock and writes the restock audit row in one statement.
	Restock(ctx context.Context, id uuid.UUID, quantity int, reason string, restockedBy uuid.UUID) error
}

type SaleRepository interface {
	// Record decrements stock and inserts the sale in one transaction.
	Record(ctx context.Context, s *Sale) error
	List(ctx context.Context, limit, offset int) ([]*Sale, int, error)
}
