// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of GORM tags; each model converts to and from its
// domain type with ToDomain and a ...FromDomain constructor.
//
// Soft-deletable tables use an explicit nullable deleted_at column rather than
// gorm.DeletedAt, so every query states its own deleted_at filter.
package models
