package reports

import (
	"time"

	"github.com/google/uuid"
)

// ProfitReorderRow is one row of profit_reorder_report(): margin per
// medication plus a reorder flag when stock sits at or below the threshold.
type ProfitReorderRow struct {
	MedicationID  uuid.UUID `json:"medication_id"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stock_quantity"`
	ReorderLevel  int       `json:"reorder_level"`
	UnitPrice     float64   `json:"unit_price"`
	CostPrice     float64   `json:"cost_price"`
	ProfitMargin  float64   `json:"profit_margin"`
	NeedsReorder  bool      `json:"needs_reorder"`
}

// TopSellingRow is one row of top_selling_medications($1).
type TopSellingRow struct {
	MedicationID   uuid.UUID `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	TotalQuantity  int       `json:"total_quantity"`
}

// DailyCollectionRow aggregates money collected per calendar day.
type DailyCollectionRow struct {
	Day              time.Time `json:"day"`
	AppointmentFees  float64   `json:"appointment_fees"`
	PharmacyRevenue  float64   `json:"pharmacy_revenue"`
	TotalCollection  float64   `json:"total_collection"`
	AppointmentCount int       `json:"appointment_count"`
	SaleCount        int       `json:"sale_count"`
}
