package models

import "time"

// BaseModel provides the id and timestamp columns shared by all tables.
type BaseModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TenantOwned is implemented by models whose rows belong to one tenant.
type TenantOwned interface {
	SetTenantID(tenantID string)
}
