package shared

import (
	"context"
	"time"
)

// Audit actions written by the catalog.
const (
	AuditProductCreate = "product.create"
	AuditProductUpdate = "product.update"
	AuditProductDelete = "product.delete"
)

// AuditEntry is one record of a successful mutation.
type AuditEntry struct {
	ID        string
	TenantID  string
	ActorID   string
	Action    string
	Entity    string
	EntityID  string
	Meta      map[string]any
	CreatedAt time.Time
}

// AuditSink receives audit entries. It is write-only from the caller's view.
type AuditSink interface {
	Write(ctx context.Context, entry AuditEntry) error
}
