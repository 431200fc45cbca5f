package models

import (
	"time"

	"github.com/tenantapi/backend/internal/domain/identity"
)

// TenantModel is the persistence model for tenants.
type TenantModel struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// RoleModel is the persistence model for roles.
type RoleModel struct {
	BaseModel
	TenantID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_roles_tenant_name,priority:1"`
	Name     string `gorm:"type:varchar(100);not null;uniqueIndex:idx_roles_tenant_name,priority:2"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// RolePermissionModel stores one permission code granted to a role.
type RolePermissionModel struct {
	RoleID   string `gorm:"type:varchar(64);primaryKey"`
	TenantID string `gorm:"type:varchar(64);not null;index"`
	Code     string `gorm:"type:varchar(100);primaryKey"`
}

// TableName returns the table name for GORM
func (RolePermissionModel) TableName() string {
	return "role_permissions"
}

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	BaseModel
	TenantID     string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_users_tenant_email,priority:1"`
	RoleID       string     `gorm:"type:varchar(64);not null;index"`
	Email        string     `gorm:"type:varchar(320);not null;uniqueIndex:idx_users_tenant_email,priority:2"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	DeletedAt    *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		ID:           m.ID,
		TenantID:     m.TenantID,
		RoleID:       m.RoleID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		DeletedAt:    m.DeletedAt,
	}
}

// UserModelFromDomain creates a persistence model from a domain User.
func UserModelFromDomain(u *identity.User) *UserModel {
	return &UserModel{
		BaseModel:    BaseModel{ID: u.ID, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt},
		TenantID:     u.TenantID,
		RoleID:       u.RoleID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		DeletedAt:    u.DeletedAt,
	}
}

// RefreshTokenModel stores the hash of an issued refresh token.
type RefreshTokenModel struct {
	ID           string    `gorm:"type:varchar(64);primaryKey"`
	TenantID     string    `gorm:"type:varchar(64);not null"`
	UserID       string    `gorm:"type:varchar(64);not null;index"`
	TokenHash    string    `gorm:"type:char(64);not null;uniqueIndex"`
	IssuedAt     time.Time `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	RevokedAt    *time.Time
	ReplacedByID *string `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// ToDomain converts the persistence model to a domain RefreshToken.
func (m *RefreshTokenModel) ToDomain() *identity.RefreshToken {
	return &identity.RefreshToken{
		ID:           m.ID,
		TenantID:     m.TenantID,
		UserID:       m.UserID,
		TokenHash:    m.TokenHash,
		IssuedAt:     m.IssuedAt,
		ExpiresAt:    m.ExpiresAt,
		RevokedAt:    m.RevokedAt,
		ReplacedByID: m.ReplacedByID,
	}
}

// RefreshTokenModelFromDomain creates a persistence model from a domain RefreshToken.
func RefreshTokenModelFromDomain(t *identity.RefreshToken) *RefreshTokenModel {
	return &RefreshTokenModel{
		ID:           t.ID,
		TenantID:     t.TenantID,
		UserID:       t.UserID,
		TokenHash:    t.TokenHash,
		IssuedAt:     t.IssuedAt,
		ExpiresAt:    t.ExpiresAt,
		RevokedAt:    t.RevokedAt,
		ReplacedByID: t.ReplacedByID,
	}
}
