package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedProduct is one product row created by Seed.
type SeedProduct struct {
	ID    string
	SKU   string
	Name  string
	Unit  *string
	Price *decimal.Decimal
}

// SeedData describes the development fixture: one tenant, one role, one user.
type SeedData struct {
	TenantID     string
	TenantName   string
	RoleID       string
	RoleName     string
	Permissions  []string
	UserID       string
	Email        string
	PasswordHash string
	Products     []SeedProduct
}

// DefaultSeedData returns the standard development fixture for the given password hash.
func DefaultSeedData(passwordHash string) SeedData {
	pcs := "pcs"
	return SeedData{
		TenantID:     "t1",
		TenantName:   "Test Tenant",
		RoleID:       "r1",
		RoleName:     "ADMIN",
		Permissions:  []string{identity.PermissionProductRead, identity.PermissionProductWrite},
		UserID:       "u1",
		Email:        "user@test.local",
		PasswordHash: passwordHash,
		Products: []SeedProduct{
			{ID: "p1", SKU: "SKU-001", Name: "Sample Product 1", Unit: &pcs},
			{ID: "p2", SKU: "SKU-002", Name: "Sample Product 2", Unit: &pcs},
		},
	}
}

// Seed upserts the fixture. Running it twice leaves the same rows behind.
func Seed(ctx context.Context, db *gorm.DB, data SeedData) error {
	now := time.Now().UTC()
	upsert := func(cols ...string) clause.OnConflict {
		return clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t := &models.TenantModel{
			BaseModel: models.BaseModel{ID: data.TenantID, CreatedAt: now, UpdatedAt: now},
			Name:      data.TenantName,
		}
		if err := tx.Clauses(upsert("name", "updated_at")).Create(t).Error; err != nil {
			return fmt.Errorf("seed tenant: %w", err)
		}

		role := &models.RoleModel{
			BaseModel: models.BaseModel{ID: data.RoleID, CreatedAt: now, UpdatedAt: now},
			TenantID:  data.TenantID,
			Name:      data.RoleName,
		}
		if err := tx.Clauses(upsert("name", "updated_at")).Create(role).Error; err != nil {
			return fmt.Errorf("seed role: %w", err)
		}

		for _, code := range data.Permissions {
			perm := &models.RolePermissionModel{RoleID: data.RoleID, TenantID: data.TenantID, Code: code}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(perm).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", code, err)
			}
		}

		user := &models.UserModel{
			BaseModel:    models.BaseModel{ID: data.UserID, CreatedAt: now, UpdatedAt: now},
			TenantID:     data.TenantID,
			RoleID:       data.RoleID,
			Email:        identity.NormalizeEmail(data.Email),
			PasswordHash: data.PasswordHash,
		}
		if err := tx.Clauses(upsert("role_id", "email", "password_hash", "updated_at")).Create(user).Error; err != nil {
			return fmt.Errorf("seed user: %w", err)
		}

		for _, p := range data.Products {
			row := &models.ProductModel{
				BaseModel: models.BaseModel{ID: p.ID, CreatedAt: now, UpdatedAt: now},
				TenantID:  data.TenantID,
				SKU:       p.SKU,
				Name:      p.Name,
				Unit:      p.Unit,
				Price:     p.Price,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
				return fmt.Errorf("seed product %s: %w", p.SKU, err)
			}
		}
		return nil
	})
}

// AutoMigrate creates all tables from the GORM models.
// Production schemas come from the SQL migrations; this is for SQLite and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.TenantModel{},
		&models.RoleModel{},
		&models.RolePermissionModel{},
		&models.UserModel{},
		&models.RefreshTokenModel{},
		&models.IdempotencyRecordModel{},
		&models.ProductModel{},
		&models.AuditLogModel{},
	)
}
