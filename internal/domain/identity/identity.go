// Package identity holds the principals, credentials and role permissions of a tenant.
package identity

// Identity is the verified principal attached to a request.
// It is derived from a signed access token and never persisted.
type Identity struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	RoleID   string `json:"roleId"`
}

// IsComplete reports whether every field of the triple is present.
// A partially populated identity must never be trusted.
func (i Identity) IsComplete() bool {
	return i.TenantID != "" && i.UserID != "" && i.RoleID != ""
}
