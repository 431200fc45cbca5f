package identity

import "time"

// Permission codes used by the catalog routes.
const (
	PermissionProductRead  = "product:read"
	PermissionProductWrite = "product:write"
)

// Role groups a flat set of permission strings within a tenant.
type Role struct {
	ID          string
	TenantID    string
	Name        string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PermissionSet is a resolved set of permission codes.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from codes.
func NewPermissionSet(codes ...string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether perm is in the set. Matching is exact: no wildcards, no hierarchy.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// Codes returns the permission codes in no particular order.
func (s PermissionSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	return codes
}
