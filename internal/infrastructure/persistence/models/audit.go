package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tenantapi/backend/internal/domain/shared"
)

// AuditLogModel is one row of the audit trail. Meta holds JSON text.
type AuditLogModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	TenantID  string    `gorm:"type:varchar(64);not null;index:idx_audit_tenant_created,priority:1"`
	ActorID   string    `gorm:"type:varchar(64);not null"`
	Action    string    `gorm:"type:varchar(100);not null"`
	Entity    string    `gorm:"type:varchar(100);not null"`
	EntityID  string    `gorm:"type:varchar(64);not null"`
	Meta      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index;index:idx_audit_tenant_created,priority:2"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit entry.
// Meta that is not a JSON object is dropped.
func (m *AuditLogModel) ToDomain() shared.AuditEntry {
	entry := shared.AuditEntry{
		ID:        m.ID,
		TenantID:  m.TenantID,
		ActorID:   m.ActorID,
		Action:    m.Action,
		Entity:    m.Entity,
		EntityID:  m.EntityID,
		CreatedAt: m.CreatedAt,
	}
	if m.Meta != "" {
		_ = json.Unmarshal([]byte(m.Meta), &entry.Meta)
	}
	return entry
}

// AuditLogModelFromDomain creates a persistence model from a domain audit entry.
func AuditLogModelFromDomain(e shared.AuditEntry) (*AuditLogModel, error) {
	m := &AuditLogModel{
		ID:        e.ID,
		TenantID:  e.TenantID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		CreatedAt: e.CreatedAt,
	}
	if len(e.Meta) > 0 {
		raw, err := json.Marshal(e.Meta)
		if err != nil {
			return nil, fmt.Errorf("marshal audit meta: %w", err)
		}
		m.Meta = string(raw)
	}
	return m, nil
}
