package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Medication maps to the medications table.
type Medication struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	GenericName   *string    `db:"generic_name" json:"generic_name,omitempty"`
	Category      *string    `db:"category" json:"category,omitempty"`
	Description   *string    `db:"description" json:"description,omitempty"`
	UnitPrice     float64    `db:"unit_price" json:"unit_price"`
	CostPrice     float64    `db:"cost_price" json:"cost_price"`
	StockQuantity int        `db:"stock_quantity" json:"stock_quantity"`
	ReorderLevel  int        `db:"reorder_level" json:"reorder_level"`
	ExpiryDate    *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	SupplierName  *string    `db:"supplier_name" json:"supplier_name,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Sale maps to the sales table. The stock decrement and the sale insert
// commit in one transaction.
type Sale struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SaleNumber   string    `db:"sale_number" json:"sale_number"`
	MedicationID uuid.UUID `db:"medication_id" json:"medication_id"`
	Quantity     int       `db:"quantity" json:"quantity"`
	UnitPrice    float64   `db:"unit_price" json:"unit_price"`
	TotalAmount  float64   `db:"total_amount" json:"total_amount"`
	SoldBy       uuid.UUID `db:"sold_by" json:"sold_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SaleInput is the payload for recording a sale.
type SaleInput struct {
	MedicationID uuid.UUID `json:"medication_id"`
	Quantity     int       `json:"quantity"`
}

// RestockInput is the payload for a restock call. The reason is free text and
// ends up in the audit trail next to the stock adjustment.
type RestockInput struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}
