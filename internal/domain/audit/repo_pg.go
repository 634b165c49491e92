package audit

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
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const auditCols = `id, table_name, operation, principal_id, role, path, method,
	ip_address, user_agent, status_code, request_id, details, created_at`

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_log (id, table_name, operation, principal_id, role, path,
			method, ip_address, user_agent, status_code, request_id, details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.TableName, e.Operation, e.PrincipalID, e.Role, e.Path,
		e.Method, e.IPAddress, e.UserAgent, e.StatusCode, e.RequestID, e.Details)
	return err
}

func (r *repoPG) List(ctx context.Context, tableName string, limit, offset int) ([]*Entry, int, error) {
	where := ``
	var args []interface{}
	if tableName != "" {
		where = ` WHERE table_name = $1`
		args = append(args, tableName)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + auditCols + ` FROM audit_log` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TableName, &e.Operation, &e.PrincipalID, &e.Role,
			&e.Path, &e.Method, &e.IPAddress, &e.UserAgent, &e.StatusCode, &e.RequestID,
			&e.Details, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
