package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) ProfitReorder(ctx context.Context) ([]ProfitReorderRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT * FROM profit_reorder_report()`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProfitReorderRow
	for rows.Next() {
		var row ProfitReorderRow
		if err := rows.Scan(&row.MedicationID, &row.Name, &row.StockQuantity,
			&row.ReorderLevel, &row.UnitPrice, &row.CostPrice,
			&row.ProfitMargin, &row.NeedsReorder); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

func (r *repoPG) TopSelling(ctx context.Context, limit int) ([]TopSellingRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT * FROM top_selling_medications($1)`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopSellingRow
	for rows.Next() {
		var row TopSellingRow
		if err := rows.Scan(&row.MedicationID, &row.MedicationName, &row.TotalQuantity); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

func (r *repoPG) DailyCollection(ctx context.Context, start, end time.Time) ([]DailyCollectionRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		WITH appt AS (
			SELECT date_trunc('day', scheduled_at) AS day,
			       COALESCE(SUM(fee), 0) AS fees,
			       COUNT(*) AS n
			FROM appointments
			WHERE status <> 'cancelled' AND scheduled_at >= $1 AND scheduled_at < $2
			GROUP BY 1
		), sale AS (
			SELECT date_trunc('day', created_at) AS day,
			       COALESCE(SUM(total_amount), 0) AS revenue,
			       COUNT(*) AS n
			FROM sales
			WHERE created_at >= $1 AND created_at < $2
			GROUP BY 1
		)
		SELECT COALESCE(appt.day, sale.day) AS day,
		       COALESCE(appt.fees, 0),
		       COALESCE(sale.revenue, 0),
		       COALESCE(appt.fees, 0) + COALESCE(sale.revenue, 0),
		       COALESCE(appt.n, 0),
		       COALESCE(sale.n, 0)
		FROM appt FULL OUTER JOIN sale USING (day)
		ORDER BY day`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyCollectionRow
	for rows.Next() {
		var row DailyCollectionRow
		if err := rows.Scan(&row.Day, &row.AppointmentFees, &row.PharmacyRevenue,
			&row.TotalCollection, &row.AppointmentCount, &row.SaleCount); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}
