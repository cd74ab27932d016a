package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aegis-iam/aegis/internal/platform/httpx"
	"github.com/aegis-iam/aegis/internal/shared"
)

// PrincipalSource rehydrates a principal from a persisted user reference.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, userID int64) (*Principal, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Principals PrincipalSource
	Logger     *slog.Logger
}

// Authenticate resolves the session's principal and stores it in the
// request context. Anonymous sessions and stale fingerprints yield 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := m.resolve(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequirePermission ensures the current principal satisfies
// (resource, action) under wildcard matching.
func (m Middleware) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				var ok bool
				principal, ok = m.resolve(w, r)
				if !ok {
					return
				}
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			}
			if !principal.HasPermission(resource, action) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyCode ensures the principal matches at least one of the legacy
// permission codes.
func (m Middleware) RequireAnyCode(codes ...string) func(http.Handler) http.Handler {
	normalized := normalizeCodes(codes)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				var ok bool
				principal, ok = m.resolve(w, r)
				if !ok {
					return
				}
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			}
			for _, code := range normalized {
				if principal.HasPermissionCode(code) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "permission denied")
		})
	}
}

func (m Middleware) resolve(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return nil, false
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", sess.User()))
		}
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return nil, false
	}
	principal, err := m.Principals.PrincipalByID(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac resolve principal", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return nil, false
	}
	// A session survives a password change only if its recorded
	// fingerprint still matches the current hash.
	if principal.Fingerprint != sess.Fingerprint() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session no longer valid")
		return nil, false
	}
	return principal, true
}

func normalizeCodes(codes []string) []string {
	unique := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		unique[c] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for c := range unique {
		normalized = append(normalized, c)
	}
	return normalized
}
