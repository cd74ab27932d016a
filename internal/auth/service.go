package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegis-iam/aegis/internal/platform/password"
	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/shared"
	"github.com/aegis-iam/aegis/internal/users"
)

// UserSource provides account lookups for credential checks.
type UserSource interface {
	FindByUsername(ctx context.Context, username string) (users.User, error)
	GetByID(ctx context.Context, id int64) (users.User, error)
}

// GrantSource resolves a user's roles and effective permissions.
type GrantSource interface {
	RolesOfUser(ctx context.Context, userID int64) ([]rbac.Role, error)
	EffectivePermissionsOfUser(ctx context.Context, userID int64) ([]rbac.Permission, error)
}

// Service performs credential verification and principal rehydration.
type Service struct {
	users  UserSource
	grants GrantSource
	cache  *rbac.GrantCache
	audit  Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(userSource UserSource, grants GrantSource, cache *rbac.GrantCache, audit Repository, logger *slog.Logger) *Service {
	return &Service{
		users:  userSource,
		grants: grants,
		cache:  cache,
		audit:  audit,
		logger: logger,
	}
}

var _ rbac.PrincipalSource = (*Service)(nil)

// Authenticate verifies the credential pair and returns the resolved
// principal. Unknown usernames and wrong passwords are indistinguishable to
// the caller, and both take a full hash verification's worth of time.
func (s *Service) Authenticate(ctx context.Context, username, plaintext string) (*rbac.Principal, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			password.VerifyDummy(plaintext)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := password.Verify(plaintext, u.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrMalformedHash) {
			s.log("malformed stored hash", slog.Int64("user_id", u.ID))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	return s.buildPrincipal(ctx, u)
}

// PrincipalByID rehydrates the principal for a persisted user id. A deleted
// account surfaces as an authentication failure, not a missing resource.
func (s *Service) PrincipalByID(ctx context.Context, userID int64) (*rbac.Principal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("auth: user %d: %w", userID, shared.ErrUnauthenticated)
		}
		return nil, err
	}
	return s.buildPrincipal(ctx, u)
}

// RegisterSession records a login in the audit trail. Failures are logged,
// not surfaced; auditing never blocks a login.
func (s *Service) RegisterSession(ctx context.Context, sid string, userID int64, ttl time.Duration) {
	if s.audit == nil || sid == "" {
		return
	}
	if err := s.audit.InsertSession(ctx, sid, userID, time.Now().Add(ttl)); err != nil {
		s.log("register session", slog.Any("error", err))
	}
}

// RemoveSession drops the audit row on logout.
func (s *Service) RemoveSession(ctx context.Context, sid string) {
	if s.audit == nil || sid == "" {
		return
	}
	if err := s.audit.DeleteSession(ctx, sid); err != nil {
		s.log("remove session", slog.Any("error", err))
	}
}

// RevokeUserSessions clears the audit trail of one user, typically after an
// administrative password reset.
func (s *Service) RevokeUserSessions(ctx context.Context, userID int64) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.DeleteSessionsOfUser(ctx, userID); err != nil {
		s.log("revoke user sessions", slog.Any("error", err))
	}
}

func (s *Service) buildPrincipal(ctx context.Context, u users.User) (*rbac.Principal, error) {
	roles, perms, err := s.cache.Fetch(ctx, u.ID, func(ctx context.Context) ([]rbac.Role, []rbac.Permission, error) {
		roles, err := s.grants.RolesOfUser(ctx, u.ID)
		if err != nil {
			return nil, nil, err
		}
		perms, err := s.grants.EffectivePermissionsOfUser(ctx, u.ID)
		if err != nil {
			return nil, nil, err
		}
		return roles, perms, nil
	})
	if err != nil {
		return nil, err
	}
	return &rbac.Principal{
		UserID:      u.ID,
		Username:    u.Username,
		Fingerprint: Fingerprint(u.PasswordHash),
		Roles:       roles,
		Permissions: perms,
	}, nil
}

func (s *Service) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
