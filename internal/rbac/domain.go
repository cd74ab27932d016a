package rbac

import (
	"fmt"
	"strings"
	"time"
)

const (
	// WildcardAction grants every action on the permission's resource.
	WildcardAction = "*"
	// SuperResource combined with WildcardAction grants global super-access.
	SuperResource = "admin"
	// SuperCode is the legacy string encoding of the super permission.
	SuperCode = "*"
)

// Role represents a named permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability identified by a
// (resource, action) pair. The pair is unique; only the description is
// mutable after creation.
type Permission struct {
	ID          int64
	Resource    string
	Action      string
	Description string
	CreatedAt   time.Time
}

// Code returns the legacy string encoding of the permission. The super
// permission (admin, *) encodes to "*"; everything else to
// "resource:action".
func (p Permission) Code() string {
	if p.Resource == SuperResource && p.Action == WildcardAction {
		return SuperCode
	}
	return p.Resource + ":" + p.Action
}

// ParseCode converts a legacy permission code back into its structured
// (resource, action) pair. The mapping is the inverse of Code.
func ParseCode(code string) (resource, action string, err error) {
	code = strings.TrimSpace(code)
	if code == SuperCode {
		return SuperResource, WildcardAction, nil
	}
	resource, action, ok := strings.Cut(code, ":")
	if !ok || resource == "" || action == "" {
		return "", "", fmt.Errorf("rbac: malformed permission code %q", code)
	}
	return resource, action, nil
}

// Assignment ties a permission to a role.
type Assignment struct {
	RoleID       int64
	PermissionID int64
	CreatedAt    time.Time
}

// UserRole links a user to a role.
type UserRole struct {
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}
