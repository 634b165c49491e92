package db

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	tenantBindingKey contextKey = "tenant_binding"
	DBConnKey        contextKey = "db_conn"
)

var (
	// ErrConflictingTenant is returned when a request that already carries a
	// tenant binding attempts to bind a different tenant id. Rebinding the
	// same id is a no-op; a distinct id is rejected outright so a reused
	// server-side channel can never leak data across tenants.
	ErrConflictingTenant = errors.New("conflicting tenant binding")

	// ErrTenantPropagation is returned when the tenant id could not be
	// propagated onto the database connection.
	ErrTenantPropagation = errors.New("tenant propagation failed")
)

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// tenantBinding is the request-scoped tenant attachment. It is a pointer so
// BindTenant can detect a second, conflicting bind attempt on the same
// request rather than silently producing a derived context.
type tenantBinding struct {
	tenantID string
}

// BindTenant attaches a tenant id to the context. Binding is idempotent for
// the same id and fails with ErrConflictingTenant for a different one.
func BindTenant(ctx context.Context, tenantID string) (context.Context, error) {
	if !tenantIDPattern.MatchString(tenantID) {
		return ctx, fmt.Errorf("invalid tenant identifier %q", tenantID)
	}
	if b, ok := ctx.Value(tenantBindingKey).(*tenantBinding); ok {
		if b.tenantID == tenantID {
			return ctx, nil
		}
		return ctx, fmt.Errorf("%w: already bound to %q", ErrConflictingTenant, b.tenantID)
	}
	return context.WithValue(ctx, tenantBindingKey, &tenantBinding{tenantID: tenantID}), nil
}

// TenantFromContext retrieves the bound tenant ID from context.
func TenantFromContext(ctx context.Context) string {
	if b, ok := ctx.Value(tenantBindingKey).(*tenantBinding); ok {
		return b.tenantID
	}
	return ""
}

// TenantMiddleware resolves the request's tenant, binds it to the request
// context, and scopes a pooled connection to the tenant's schema so every
// downstream data call is implicitly tenant-scoped.
func TenantMiddleware(pool *pgxpool.Pool, defaultTenant string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID := extractTenantID(c, defaultTenant)

			ctx, err := BindTenant(c.Request().Context(), tenantID)
			if err != nil {
				if errors.Is(err, ErrConflictingTenant) {
					return echo.NewHTTPError(http.StatusConflict, "conflicting tenant context")
				}
				return echo.NewHTTPError(http.StatusBadRequest, "invalid tenant identifier")
			}

			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			schema := fmt.Sprintf("tenant_%s", tenantID)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, shared, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "tenant resolution failed")
			}

			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("tenant_id", tenantID)
			c.Set("db", conn)

			return next(c)
		}
	}
}

func extractTenantID(c echo.Context, defaultTenant string) string {
	// 1. Check JWT claim (set by session middleware)
	if tid, ok := c.Get("jwt_tenant_id").(string); ok && tid != "" {
		return tid
	}

	// 2. Check X-Tenant-ID header
	if tid := c.Request().Header.Get("X-Tenant-ID"); tid != "" {
		return tid
	}

	// 3. Check query parameter
	if tid := c.QueryParam("tenant_id"); tid != "" {
		return tid
	}

	return defaultTenant
}

// ConnFromContext retrieves the tenant-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// CreateTenantSchema creates a new schema for a tenant and runs all migrations
// against it. If migrationsDir is empty, migrations are skipped.
func CreateTenantSchema(ctx context.Context, pool *pgxpool.Pool, tenantID string, migrationsDir string) error {
	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("invalid tenant identifier: %s", tenantID)
	}

	schema := fmt.Sprintf("tenant_%s", tenantID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
