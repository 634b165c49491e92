package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

// ErrInsufficientStock is returned when a sale would drive stock negative.
var ErrInsufficientStock = errors.New("insufficient stock")

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// txBeginner is satisfied by both *pgxpool.Pool and the tenant-scoped
// *pgxpool.Conn.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const medCols = `id, name, generic_name, category, description, unit_price, cost_price,
	stock_quantity, reorder_level, expiry_date, supplier_name, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.GenericName, &m.Category, &m.Description,
		&m.UnitPrice, &m.CostPrice, &m.StockQuantity, &m.ReorderLevel,
		&m.ExpiryDate, &m.SupplierName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medications (id, name, generic_name, category, description, unit_price,
			cost_price, stock_quantity, reorder_level, expiry_date, supplier_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		m.ID, m.Name, m.GenericName, m.Category, m.Description, m.UnitPrice,
		m.CostPrice, m.StockQuantity, m.ReorderLevel, m.ExpiryDate, m.SupplierName)
	return err
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+` FROM medications WHERE id = $1`, id))
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medications SET name=$2, generic_name=$3, category=$4, description=$5,
			unit_price=$6, cost_price=$7, reorder_level=$8, expiry_date=$9,
			supplier_name=$10, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.GenericName, m.Category, m.Description,
		m.UnitPrice, m.CostPrice, m.ReorderLevel, m.ExpiryDate, m.SupplierName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *medicationRepoPG) List(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error) {
	where := ``
	var args []interface{}
	if search != "" {
		where = ` WHERE name ILIKE $1 OR generic_name ILIKE $1 OR category ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medications`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + medCols + ` FROM medications` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *medicationRepoPG) Restock(ctx context.Context, id uuid.UUID, quantity int, reason string, restockedBy uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `SELECT restock_medication($1, $2, $3, $4)`, id, quantity, reason, restockedBy)
	return err
}

type saleRepoPG struct{ pool *pgxpool.Pool }

func NewSaleRepoPG(pool *pgxpool.Pool) SaleRepository { return &saleRepoPG{pool: pool} }

func (r *saleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *saleRepoPG) beginner(ctx context.Context) txBeginner {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *saleRepoPG) Record(ctx context.Context, s *Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	tx, err := r.beginner(ctx).Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	ctx = db.WithTx(ctx, tx)

	// Guarded decrement; zero rows means the stock would go negative.
	tag, err := tx.Exec(ctx, `
		UPDATE medications
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2`,
		s.MedicationID, s.Quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish an unknown medication from one that is merely out of
		// stock so the handler can return 404 vs 409.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM medications WHERE id = $1)`, s.MedicationID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrInsufficientStock
	}

	if err := tx.QueryRow(ctx, `
		SELECT unit_price FROM medications WHERE id = $1`, s.MedicationID,
	).Scan(&s.UnitPrice); err != nil {
		return err
	}
	s.TotalAmount = s.UnitPrice * float64(s.Quantity)

	if _, err := tx.Exec(ctx, `
		INSERT INTO sales (id, sale_number, medication_id, quantity, unit_price, total_amount, sold_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.SaleNumber, s.MedicationID, s.Quantity, s.UnitPrice, s.TotalAmount, s.SoldBy); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *saleRepoPG) List(ctx context.Context, limit, offset int) ([]*Sale, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, sale_number, medication_id, quantity, unit_price, total_amount, sold_by, created_at
		FROM sales ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.SaleNumber, &s.MedicationID, &s.Quantity,
			&s.UnitPrice, &s.TotalAmount, &s.SoldBy, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}
