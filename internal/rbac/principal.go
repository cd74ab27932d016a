package rbac

import "context"

// Principal describes an authenticated user together with the roles and
// effective permissions resolved for them. It is derived per session and
// never persisted.
type Principal struct {
	UserID      int64
	Username    string
	Fingerprint string
	Roles       []Role
	Permissions []Permission
}

// HasPermission reports whether the principal's effective permission set
// satisfies (resource, action). Pure computation over the resolved set.
func (p *Principal) HasPermission(resource, action string) bool {
	if p == nil {
		return false
	}
	return AnyMatches(p.Permissions, resource, action)
}

// HasPermissionCode evaluates a legacy string code against the principal's
// permission set.
func (p *Principal) HasPermissionCode(code string) bool {
	if p == nil {
		return false
	}
	for _, perm := range p.Permissions {
		if MatchesCode(perm.Code(), code) {
			return true
		}
	}
	return false
}

// HasRole reports whether the principal holds the named role.
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// IsSuperUser reports whether the principal holds the super permission.
func (p *Principal) IsSuperUser() bool {
	return p.HasPermission(SuperResource, WildcardAction)
}

// PermissionCodes projects the effective set into legacy codes, preserving
// the deterministic ordering of the underlying set.
func (p *Principal) PermissionCodes() []string {
	if p == nil {
		return nil
	}
	codes := make([]string, len(p.Permissions))
	for i, perm := range p.Permissions {
		codes[i] = perm.Code()
	}
	return codes
}

// RoleNames lists the principal's role names.
func (p *Principal) RoleNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.Roles))
	for i, r := range p.Roles {
		names[i] = r.Name
	}
	return names
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
