package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-iam/aegis/internal/platform/db"
	"github.com/aegis-iam/aegis/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence for the graph.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2)
		 RETURNING id, name, description, created_at, updated_at`,
		name, description,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, fmt.Errorf("rbac: role %q: %w", name, shared.ErrAlreadyExists)
		}
		return Role{}, err
	}
	return role, nil
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`,
		id,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("rbac: role %d: %w", id, shared.ErrNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// FindRoleByName fetches a role by its unique name.
func (r *PGRepository) FindRoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`,
		name,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("rbac: role %q: %w", name, shared.ErrNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// RoleExistsByName reports whether a role with the name exists.
func (r *PGRepository) RoleExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

// ListRoles returns all roles ordered by id.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// UpdateRole updates name and description of an existing role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, description, created_at, updated_at`,
		id, name, description,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("rbac: role %d: %w", id, shared.ErrNotFound)
		}
		if db.IsUniqueViolation(err) {
			return Role{}, fmt.Errorf("rbac: role %q: %w", name, shared.ErrAlreadyExists)
		}
		return Role{}, err
	}
	return role, nil
}

// DeleteRoleCascade removes assignment rows and the role in one transaction.
func (r *PGRepository) DeleteRoleCascade(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("rbac: role %d: %w", id, shared.ErrNotFound)
		}
		return nil
	})
}

// CreatePermission inserts a new permission.
func (r *PGRepository) CreatePermission(ctx context.Context, resource, action, description string) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (resource, action, description) VALUES ($1, $2, $3)
		 RETURNING id, resource, action, description, created_at`,
		resource, action, description,
	).Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Permission{}, fmt.Errorf("rbac: permission %s:%s: %w", resource, action, shared.ErrAlreadyExists)
		}
		return Permission{}, err
	}
	return perm, nil
}

// GetPermission fetches a permission by ID.
func (r *PGRepository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx,
		`SELECT id, resource, action, description, created_at FROM permissions WHERE id = $1`,
		id,
	).Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("rbac: permission %d: %w", id, shared.ErrNotFound)
		}
		return Permission{}, err
	}
	return perm, nil
}

// FindPermission fetches a permission by its (resource, action) pair.
func (r *PGRepository) FindPermission(ctx context.Context, resource, action string) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx,
		`SELECT id, resource, action, description, created_at FROM permissions
		 WHERE resource = $1 AND action = $2`,
		resource, action,
	).Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("rbac: permission %s:%s: %w", resource, action, shared.ErrNotFound)
		}
		return Permission{}, err
	}
	return perm, nil
}

// PermissionExists reports whether the (resource, action) pair exists.
func (r *PGRepository) PermissionExists(ctx context.Context, resource, action string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM permissions WHERE resource = $1 AND action = $2)`,
		resource, action,
	).Scan(&exists)
	return exists, err
}

// ListPermissions returns all permissions ordered by id.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, resource, action, description, created_at FROM permissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// UpdatePermissionDescription updates the only mutable permission field.
func (r *PGRepository) UpdatePermissionDescription(ctx context.Context, id int64, description string) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx,
		`UPDATE permissions SET description = $2 WHERE id = $1
		 RETURNING id, resource, action, description, created_at`,
		id, description,
	).Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("rbac: permission %d: %w", id, shared.ErrNotFound)
		}
		return Permission{}, err
	}
	return perm, nil
}

// DeletePermissionCascade removes assignment rows and the permission in one transaction.
func (r *PGRepository) DeletePermissionCascade(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("rbac: permission %d: %w", id, shared.ErrNotFound)
		}
		return nil
	})
}

// AssignmentExists reports whether the role-permission link exists.
func (r *PGRepository) AssignmentExists(ctx context.Context, roleID, permissionID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_id = $2)`,
		roleID, permissionID,
	).Scan(&exists)
	return exists, err
}

// InsertAssignment links a permission to a role.
func (r *PGRepository) InsertAssignment(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
		roleID, permissionID)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("rbac: assignment: %w", shared.ErrAlreadyExists)
	}
	return err
}

// DeleteAssignment unlinks a permission from a role.
func (r *PGRepository) DeleteAssignment(ctx context.Context, roleID, permissionID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UserExists reports whether the user row exists.
func (r *PGRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// UserRoleExists reports whether the user-role link exists.
func (r *PGRepository) UserRoleExists(ctx context.Context, userID, roleID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`,
		userID, roleID,
	).Scan(&exists)
	return exists, err
}

// InsertUserRole links a role to a user.
func (r *PGRepository) InsertUserRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
		userID, roleID)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("rbac: user role: %w", shared.ErrAlreadyExists)
	}
	return err
}

// DeleteUserRole unlinks a role from a user.
func (r *PGRepository) DeleteUserRole(ctx context.Context, userID, roleID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		userID, roleID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PermissionsOfRole returns the permissions granted to a role, ordered by id.
func (r *PGRepository) PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.resource, p.action, p.description, p.created_at
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.id`,
		roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// RolesOfUser returns the roles assigned to a user, ordered by id.
func (r *PGRepository) RolesOfUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY r.id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// EffectivePermissionsOfUser unions permissions over the user's roles,
// deduplicated by permission id, ordered by id.
func (r *PGRepository) EffectivePermissionsOfUser(ctx context.Context, userID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.id, p.resource, p.action, p.description, p.created_at
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 JOIN user_roles ur ON ur.role_id = rp.role_id
		 WHERE ur.user_id = $1
		 ORDER BY p.id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// UsersOfRole lists ids of users currently holding the role.
func (r *PGRepository) UsersOfRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM user_roles WHERE role_id = $1 ORDER BY user_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}
