package identity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// User is a tenant member who can log in.
type User struct {
	ID           string
	TenantID     string
	RoleID       string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Identity returns the principal triple for the user.
func (u *User) Identity() Identity {
	return Identity{TenantID: u.TenantID, UserID: u.ID, RoleID: u.RoleID}
}

// IsDeleted reports whether the user has been removed.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// NormalizeEmail canonicalises an email for lookup: NFKC, case folded, trimmed.
func NormalizeEmail(email string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(email)))
}
