package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const profileCols = `id, principal_id, email, full_name, phone_number, role, password_hash, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.PrincipalID, &p.Email, &p.FullName, &p.PhoneNumber,
		&p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoPG) Create(ctx context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO profiles (id, principal_id, email, full_name, phone_number, role, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.PrincipalID, p.Email, p.FullName, p.PhoneNumber, p.Role, p.PasswordHash)
	return err
}

func (r *profileRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
}

func (r *profileRepoPG) GetByPrincipalID(ctx context.Context, principalID uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE principal_id = $1`, principalID))
}

func (r *profileRepoPG) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE lower(email) = lower($1)`, email))
}

func (r *profileRepoPG) Update(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET full_name=$2, phone_number=$3, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.PhoneNumber)
	return err
}

func (r *profileRepoPG) UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET role=$2, updated_at=NOW() WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepoPG) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+profileCols+` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
