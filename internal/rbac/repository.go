package rbac

import "context"

// Repository defines persistence operations for the role-permission graph.
// Implementations surface shared.ErrNotFound / shared.ErrAlreadyExists for
// constraint failures so the service can keep precise error kinds.
type Repository interface {
	CreateRole(ctx context.Context, name, description string) (Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	FindRoleByName(ctx context.Context, name string) (Role, error)
	RoleExistsByName(ctx context.Context, name string) (bool, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	// DeleteRoleCascade removes the role and every assignment referencing
	// it in a single transaction.
	DeleteRoleCascade(ctx context.Context, id int64) error

	CreatePermission(ctx context.Context, resource, action, description string) (Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	FindPermission(ctx context.Context, resource, action string) (Permission, error)
	PermissionExists(ctx context.Context, resource, action string) (bool, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	UpdatePermissionDescription(ctx context.Context, id int64, description string) (Permission, error)
	DeletePermissionCascade(ctx context.Context, id int64) error

	AssignmentExists(ctx context.Context, roleID, permissionID int64) (bool, error)
	InsertAssignment(ctx context.Context, roleID, permissionID int64) error
	// DeleteAssignment returns the number of rows removed so the caller can
	// distinguish a no-op revoke.
	DeleteAssignment(ctx context.Context, roleID, permissionID int64) (int64, error)

	UserExists(ctx context.Context, userID int64) (bool, error)
	UserRoleExists(ctx context.Context, userID, roleID int64) (bool, error)
	InsertUserRole(ctx context.Context, userID, roleID int64) error
	DeleteUserRole(ctx context.Context, userID, roleID int64) (int64, error)

	PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error)
	RolesOfUser(ctx context.Context, userID int64) ([]Role, error)
	// EffectivePermissionsOfUser returns the deduplicated union over all of
	// the user's roles, ordered by permission id.
	EffectivePermissionsOfUser(ctx context.Context, userID int64) ([]Permission, error)
	// UsersOfRole lists user ids holding the role; used for cache
	// invalidation when a role's grants change.
	UsersOfRole(ctx context.Context, roleID int64) ([]int64, error)
}
