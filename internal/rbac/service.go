package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/aegis-iam/aegis/internal/shared"
)

// Invalidator drops cached grants after a mutation. A nil invalidator
// disables caching entirely.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64)
	InvalidateAll(ctx context.Context)
}

// ServiceConfig carries behavioural switches for the graph service.
type ServiceConfig struct {
	// StrictRevoke makes revoking an absent assignment return NotFound
	// instead of silently succeeding.
	StrictRevoke bool
}

// Service orchestrates role and permission management and graph resolution.
type Service struct {
	repo  Repository
	cache Invalidator
	cfg   ServiceConfig
}

// NewService constructs a Service.
func NewService(repo Repository, cache Invalidator, cfg ServiceConfig) *Service {
	return &Service{repo: repo, cache: cache, cfg: cfg}
}

// CreateRole inserts a new role, failing with AlreadyExists on a taken name.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("rbac: role name required: %w", shared.ErrValidation)
	}
	taken, err := s.repo.RoleExistsByName(ctx, name)
	if err != nil {
		return Role{}, err
	}
	if taken {
		return Role{}, fmt.Errorf("rbac: role %q: %w", name, shared.ErrAlreadyExists)
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// FindRoleByName fetches a role by name.
func (s *Service) FindRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.FindRoleByName(ctx, name)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// UpdateRole renames a role and updates its description.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("rbac: role name required: %w", shared.ErrValidation)
	}
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if name != current.Name {
		taken, err := s.repo.RoleExistsByName(ctx, name)
		if err != nil {
			return Role{}, err
		}
		if taken {
			return Role{}, fmt.Errorf("rbac: role %q: %w", name, shared.ErrAlreadyExists)
		}
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes the role and all its assignments transactionally.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	holders, err := s.repo.UsersOfRole(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRoleCascade(ctx, id); err != nil {
		return err
	}
	s.invalidateAll(ctx, holders)
	return nil
}

// CreatePermission inserts a new permission identified by its pair.
func (s *Service) CreatePermission(ctx context.Context, resource, action, description string) (Permission, error) {
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return Permission{}, fmt.Errorf("rbac: resource and action required: %w", shared.ErrValidation)
	}
	exists, err := s.repo.PermissionExists(ctx, resource, action)
	if err != nil {
		return Permission{}, err
	}
	if exists {
		return Permission{}, fmt.Errorf("rbac: permission %s:%s: %w", resource, action, shared.ErrAlreadyExists)
	}
	return s.repo.CreatePermission(ctx, resource, action, strings.TrimSpace(description))
}

// GetPermission fetches a permission by ID.
func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

// FindPermission fetches a permission by its pair.
func (s *Service) FindPermission(ctx context.Context, resource, action string) (Permission, error) {
	return s.repo.FindPermission(ctx, resource, action)
}

// FindPermissionByCode fetches a permission by its legacy code.
func (s *Service) FindPermissionByCode(ctx context.Context, code string) (Permission, error) {
	resource, action, err := ParseCode(code)
	if err != nil {
		return Permission{}, fmt.Errorf("%s: %w", err, shared.ErrValidation)
	}
	return s.repo.FindPermission(ctx, resource, action)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// UpdatePermissionDescription changes the permission description. The
// (resource, action) identity is immutable.
func (s *Service) UpdatePermissionDescription(ctx context.Context, id int64, description string) (Permission, error) {
	return s.repo.UpdatePermissionDescription(ctx, id, strings.TrimSpace(description))
}

// DeletePermission removes the permission and its assignments transactionally.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	if _, err := s.repo.GetPermission(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeletePermissionCascade(ctx, id); err != nil {
		return err
	}
	// Any user could have held this permission through some role, so the
	// whole grant cache is dropped. Deleting permissions is an
	// administrative rarity.
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
	return nil
}

// AssignPermissionToRole grants a permission to a role.
func (s *Service) AssignPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
		return err
	}
	exists, err := s.repo.AssignmentExists(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("rbac: permission already assigned to role: %w", shared.ErrAlreadyExists)
	}
	if err := s.repo.InsertAssignment(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.invalidateRoleHolders(ctx, roleID)
	return nil
}

// RevokePermissionFromRole removes a grant. Revoking an absent assignment
// is a silent no-op unless StrictRevoke is configured.
func (s *Service) RevokePermissionFromRole(ctx context.Context, roleID, permissionID int64) error {
	removed, err := s.repo.DeleteAssignment(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if removed == 0 {
		if s.cfg.StrictRevoke {
			return fmt.Errorf("rbac: assignment: %w", shared.ErrNotFound)
		}
		return nil
	}
	s.invalidateRoleHolders(ctx, roleID)
	return nil
}

// AssignRoleToUser links a role to a user.
func (s *Service) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("rbac: user %d: %w", userID, shared.ErrNotFound)
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	exists, err := s.repo.UserRoleExists(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("rbac: role already assigned to user: %w", shared.ErrAlreadyExists)
	}
	if err := s.repo.InsertUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RevokeRoleFromUser unlinks a role. Same revoke semantics as permissions.
func (s *Service) RevokeRoleFromUser(ctx context.Context, userID, roleID int64) error {
	removed, err := s.repo.DeleteUserRole(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if removed == 0 {
		if s.cfg.StrictRevoke {
			return fmt.Errorf("rbac: user role: %w", shared.ErrNotFound)
		}
		return nil
	}
	s.invalidate(ctx, userID)
	return nil
}

// PermissionsOfRole returns the permissions granted to the role.
func (s *Service) PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.PermissionsOfRole(ctx, roleID)
}

// RolesOfUser returns the roles assigned to the user.
func (s *Service) RolesOfUser(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.RolesOfUser(ctx, userID)
}

// EffectivePermissionsOfUser returns the deduplicated union of permissions
// over all of the user's roles, ordered by permission id.
func (s *Service) EffectivePermissionsOfUser(ctx context.Context, userID int64) ([]Permission, error) {
	return s.repo.EffectivePermissionsOfUser(ctx, userID)
}

// UserHasPermission resolves the user's effective set and evaluates the
// wildcard-aware match against (resource, action).
func (s *Service) UserHasPermission(ctx context.Context, userID int64, resource, action string) (bool, error) {
	perms, err := s.repo.EffectivePermissionsOfUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return AnyMatches(perms, resource, action), nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func (s *Service) invalidateAll(ctx context.Context, userIDs []int64) {
	for _, id := range userIDs {
		s.invalidate(ctx, id)
	}
}

func (s *Service) invalidateRoleHolders(ctx context.Context, roleID int64) {
	if s.cache == nil {
		return
	}
	holders, err := s.repo.UsersOfRole(ctx, roleID)
	if err != nil {
		return
	}
	s.invalidateAll(ctx, holders)
}
