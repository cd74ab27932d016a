package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionMatches(t *testing.T) {
	tests := []struct {
		name     string
		granted  Permission
		resource string
		action   string
		want     bool
	}{
		{"exact match", Permission{Resource: "user", Action: "read"}, "user", "read", true},
		{"action mismatch", Permission{Resource: "user", Action: "read"}, "user", "write", false},
		{"resource mismatch", Permission{Resource: "user", Action: "read"}, "role", "read", false},
		{"resource wildcard covers read", Permission{Resource: "user", Action: "*"}, "user", "read", true},
		{"resource wildcard covers delete", Permission{Resource: "user", Action: "*"}, "user", "delete", true},
		{"resource wildcard other resource", Permission{Resource: "user", Action: "*"}, "role", "read", false},
		{"super matches anything", Permission{Resource: "admin", Action: "*"}, "user", "delete", true},
		{"super matches unknown resource", Permission{Resource: "admin", Action: "*"}, "report", "export", true},
		{"plain admin action is not super", Permission{Resource: "admin", Action: "read"}, "user", "read", false},
		{"requesting the wildcard needs the wildcard", Permission{Resource: "user", Action: "read"}, "user", "*", false},
		{"wildcard grant satisfies wildcard request", Permission{Resource: "user", Action: "*"}, "user", "*", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.granted.Matches(tt.resource, tt.action))
		})
	}
}

func TestMatchesCode(t *testing.T) {
	tests := []struct {
		granted  string
		required string
		want     bool
	}{
		{"user:read", "user:read", true},
		{"user:read", "user:write", false},
		{"user:*", "user:read", true},
		{"user:*", "user:delete", true},
		{"user:*", "role:read", false},
		{"*", "user:read", true},
		{"*", "anything:at-all", true},
		{"role:*", "role:write", true},
		{"role:read", "role:*", false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, MatchesCode(tt.granted, tt.required),
			"granted=%q required=%q", tt.granted, tt.required)
	}
}

func TestAnyMatches(t *testing.T) {
	perms := []Permission{
		{Resource: "user", Action: "read"},
		{Resource: "role", Action: "*"},
	}
	assert.True(t, AnyMatches(perms, "user", "read"))
	assert.True(t, AnyMatches(perms, "role", "delete"))
	assert.False(t, AnyMatches(perms, "user", "delete"))
	assert.False(t, AnyMatches(nil, "user", "read"))
}

func TestCodeRoundTrip(t *testing.T) {
	tests := []struct {
		perm Permission
		code string
	}{
		{Permission{Resource: "admin", Action: "*"}, "*"},
		{Permission{Resource: "user", Action: "read"}, "user:read"},
		{Permission{Resource: "user", Action: "*"}, "user:*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.perm.Code())
		resource, action, err := ParseCode(tt.code)
		require.NoError(t, err)
		assert.Equal(t, tt.perm.Resource, resource)
		assert.Equal(t, tt.perm.Action, action)
	}

	_, _, err := ParseCode("no-separator")
	require.Error(t, err)
	_, _, err = ParseCode(":action")
	require.Error(t, err)
	_, _, err = ParseCode("resource:")
	require.Error(t, err)
}

func TestPrincipalHelpers(t *testing.T) {
	p := &Principal{
		UserID:   7,
		Username: "alice",
		Roles:    []Role{{ID: 1, Name: "admin"}},
		Permissions: []Permission{
			{Resource: "user", Action: "*"},
			{Resource: "role", Action: "read"},
		},
	}

	assert.True(t, p.HasPermission("user", "delete"))
	assert.True(t, p.HasPermission("role", "read"))
	assert.False(t, p.HasPermission("role", "write"))
	assert.True(t, p.HasPermissionCode("user:write"))
	assert.False(t, p.HasPermissionCode("role:write"))
	assert.True(t, p.HasRole("admin"))
	assert.False(t, p.HasRole("superuser"))
	assert.False(t, p.IsSuperUser())
	assert.Equal(t, []string{"user:*", "role:read"}, p.PermissionCodes())
	assert.Equal(t, []string{"admin"}, p.RoleNames())

	super := &Principal{Permissions: []Permission{{Resource: "admin", Action: "*"}}}
	assert.True(t, super.IsSuperUser())
	assert.True(t, super.HasPermission("report", "export"))

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasPermission("user", "read"))
	assert.False(t, nilPrincipal.HasRole("admin"))
}

func TestCatalogResolve(t *testing.T) {
	catalog := DefaultCatalog()

	desc, ok := catalog.Resolve("user", "read")
	require.True(t, ok)
	assert.Equal(t, "user:read", desc.Code())

	desc, ok = catalog.Resolve(SuperResource, WildcardAction)
	require.True(t, ok)
	assert.Equal(t, SuperCode, desc.Code())

	_, ok = catalog.Resolve("user", "export")
	assert.False(t, ok)

	all := catalog.All()
	require.NotEmpty(t, all)
	seen := make(map[string]bool, len(all))
	for _, d := range all {
		assert.Falsef(t, seen[d.Code()], "duplicate catalog entry %s", d.Code())
		seen[d.Code()] = true
	}
}
