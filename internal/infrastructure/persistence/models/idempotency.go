package models

import (
	"time"

	"github.com/tenantapi/backend/internal/domain/shared"
)

// IdempotencyRecordModel stores the replayable outcome of a write.
type IdempotencyRecordModel struct {
	ID           string `gorm:"type:varchar(64);primaryKey"`
	TenantID     string `gorm:"type:varchar(64);not null;uniqueIndex:idx_idempotency_tenant_key,priority:1"`
	Key          string `gorm:"column:key;type:varchar(255);not null;uniqueIndex:idx_idempotency_tenant_key,priority:2"`
	Method       string `gorm:"type:varchar(10);not null"`
	Path         string `gorm:"type:varchar(255);not null"`
	RequestHash  string `gorm:"type:char(64);not null"`
	StatusCode   int    `gorm:"not null"`
	ResponseBody []byte
	ExpiresAt    time.Time `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdempotencyRecordModel) TableName() string {
	return "idempotency_records"
}

// ToDomain converts the persistence model to a domain record.
func (m *IdempotencyRecordModel) ToDomain() *shared.IdempotencyRecord {
	return &shared.IdempotencyRecord{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Key:          m.Key,
		Method:       m.Method,
		Path:         m.Path,
		RequestHash:  m.RequestHash,
		StatusCode:   m.StatusCode,
		ResponseBody: m.ResponseBody,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
	}
}

// IdempotencyRecordModelFromDomain creates a persistence model from a domain record.
func IdempotencyRecordModelFromDomain(r *shared.IdempotencyRecord) *IdempotencyRecordModel {
	return &IdempotencyRecordModel{
		ID:           r.ID,
		TenantID:     r.TenantID,
		Key:          r.Key,
		Method:       r.Method,
		Path:         r.Path,
		RequestHash:  r.RequestHash,
		StatusCode:   r.StatusCode,
		ResponseBody: r.ResponseBody,
		ExpiresAt:    r.ExpiresAt,
		CreatedAt:    r.CreatedAt,
	}
}
