package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry maps to the audit_log table. Rows are written by the access-audit
// middleware and by database triggers on sensitive tables; this package only
// ever reads and appends, never mutates.
type Entry struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TableName   string     `db:"table_name" json:"table_name"`
	Operation   string     `db:"operation" json:"operation"`
	PrincipalID *uuid.UUID `db:"principal_id" json:"principal_id,omitempty"`
	Role        *string    `db:"role" json:"role,omitempty"`
	Path        *string    `db:"path" json:"path,omitempty"`
	Method      *string    `db:"method" json:"method,omitempty"`
	IPAddress   *string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   *string    `db:"user_agent" json:"user_agent,omitempty"`
	StatusCode  *int       `db:"status_code" json:"status_code,omitempty"`
	RequestID   *string    `db:"request_id" json:"request_id,omitempty"`
	Details     *string    `db:"details" json:"details,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
