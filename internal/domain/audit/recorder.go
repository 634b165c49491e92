package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
)

// Recorder persists access-audit middleware entries into the audit_log table
// alongside the rows written by database triggers.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) RecordAccess(ctx context.Context, e middleware.AuditEntry) error {
	entry := &Entry{
		TableName: e.Resource,
		Operation: e.Action,
	}
	if pid, err := uuid.Parse(e.PrincipalID); err == nil {
		entry.PrincipalID = &pid
	}
	if e.Role != "" {
		entry.Role = &e.Role
	}
	if e.Path != "" {
		entry.Path = &e.Path
	}
	if e.Method != "" {
		entry.Method = &e.Method
	}
	if e.IPAddress != "" {
		entry.IPAddress = &e.IPAddress
	}
	if e.UserAgent != "" {
		entry.UserAgent = &e.UserAgent
	}
	if e.StatusCode != 0 {
		entry.StatusCode = &e.StatusCode
	}
	if e.RequestID != "" {
		entry.RequestID = &e.RequestID
	}

	// Recording must not hold up or fail the request for long; the middleware
	// already treats errors as non-fatal. The caller's context is kept (minus
	// its cancellation) because it carries the tenant-scoped connection, and
	// dropping it would write the row outside the caller's tenant schema.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	return r.repo.Append(ctx, entry)
}
