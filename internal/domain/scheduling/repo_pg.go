package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
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
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, booking_number, patient_id, doctor_id, scheduled_at, reason, status,
	fee, cancel_reason, checked_in_at, created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.BookingNumber, &a.PatientID, &a.DoctorID, &a.ScheduledAt,
		&a.Reason, &a.Status, &a.Fee, &a.CancelReason, &a.CheckedInAt,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, booking_number, patient_id, doctor_id, scheduled_at,
			reason, status, fee, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.BookingNumber, a.PatientID, a.DoctorID, a.ScheduledAt,
		a.Reason, a.Status, a.Fee, a.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET doctor_id=$2, scheduled_at=$3, reason=$4, status=$5,
			cancel_reason=$6, checked_in_at=$7, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.ScheduledAt, a.Reason, a.Status, a.CancelReason, a.CheckedInAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if filter.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *filter.PatientID)
		idx++
	}
	if filter.DoctorID != nil {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *filter.DoctorID)
		idx++
	}
	if filter.CreatedBy != nil {
		where += fmt.Sprintf(` AND created_by = $%d`, idx)
		args = append(args, *filter.CreatedBy)
		idx++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, filter.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
