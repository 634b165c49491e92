package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// AuditEntry captures who accessed what, when, from where, and how the
// request concluded.
type AuditEntry struct {
	PrincipalID string
	Role        string
	TenantID    string
	Resource    string
	Action      string // read, create, update, delete
	IPAddress   string
	UserAgent   string
	Path        string
	Method      string
	Timestamp   time.Time
	RequestID   string
	StatusCode  int
}

// AuditRecorder persists audit entries. The middleware is decoupled from the
// concrete store so tests can provide a mock implementation. The context is
// the request context: it carries the tenant binding and the tenant-scoped
// connection, so persisted entries land in the caller's tenant schema.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit returns middleware that records access to /api/v1/* routes. Each
// request produces a structured log line, and when a recorder is supplied the
// entry is persisted as well. Recorder failures are logged but never fail the
// request.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			// Run the handler first so the response status is known.
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
				Action:     methodToAction(req.Method),
				Resource:   resourceFromPath(path),
			}

			ctx := req.Context()
			if sess, ok := auth.CurrentSession(ctx); ok {
				entry.PrincipalID = sess.PrincipalID.String()
				entry.TenantID = sess.TenantID
			}
			if role, ok := auth.RoleFromContext(ctx); ok {
				entry.Role = string(role)
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(ctx, entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("principal_id", entry.PrincipalID).
				Str("role", entry.Role).
				Str("tenant_id", entry.TenantID).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromPath maps /api/v1/patients/123 to "patients".
func resourceFromPath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}
