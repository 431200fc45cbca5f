package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
)

// PermissionService resolves a principal's permissions from storage on every
// call, so a revoked permission applies to tokens that are already issued.
type PermissionService struct {
	users identity.UserRepository
	roles identity.RoleRepository
}

// NewPermissionService creates a new permission service
func NewPermissionService(users identity.UserRepository, roles identity.RoleRepository) *PermissionService {
	return &PermissionService{users: users, roles: roles}
}

// Resolve returns the permission set of the live user (userID, tenantID).
// A missing or deleted user yields shared.ErrInvalidUser. The role is read
// from the user row, not from the token.
func (s *PermissionService) Resolve(ctx context.Context, userID, tenantID string) (identity.PermissionSet, error) {
	user, err := s.users.FindByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidUser
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	codes, err := s.roles.FindPermissions(ctx, tenantID, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	return identity.NewPermissionSet(codes...), nil
}
