package rbac

import "strings"

// Matches reports whether the granted permission satisfies a request for
// (resource, action).
//
// The super permission (admin, *) matches everything. Otherwise the
// resources must be equal and the granted action must either equal the
// requested action or be the wildcard.
func (p Permission) Matches(resource, action string) bool {
	if p.Resource == SuperResource && p.Action == WildcardAction {
		return true
	}
	if p.Resource != resource {
		return false
	}
	return p.Action == action || p.Action == WildcardAction
}

// MatchesCode evaluates the legacy string-code scheme: exact equality,
// the global wildcard "*", or a "resource:*" prefix wildcard covering any
// action on that resource.
func MatchesCode(granted, required string) bool {
	if granted == SuperCode {
		return true
	}
	if granted == required {
		return true
	}
	if prefix, ok := strings.CutSuffix(granted, ":*"); ok {
		requiredPrefix, _, _ := strings.Cut(required, ":")
		return prefix == requiredPrefix
	}
	return false
}

// AnyMatches reports whether any permission in the set satisfies the
// request. Pure computation; never touches storage.
func AnyMatches(perms []Permission, resource, action string) bool {
	for _, p := range perms {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// AnyMatchesCode is AnyMatches for the legacy code scheme.
func AnyMatchesCode(codes []string, required string) bool {
	for _, c := range codes {
		if MatchesCode(c, required) {
			return true
		}
	}
	return false
}
