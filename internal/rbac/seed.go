package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aegis-iam/aegis/internal/shared"
)

// RoleSeed describes a default role and the permission codes it receives.
type RoleSeed struct {
	Name        string
	Description string
	Grants      []string
}

// DefaultRoles returns the built-in role set.
func DefaultRoles() []RoleSeed {
	return []RoleSeed{
		{
			Name:        "superuser",
			Description: "Super administrator with all permissions",
			Grants:      []string{SuperCode},
		},
		{
			Name:        "admin",
			Description: "Administrator with management permissions",
			Grants:      []string{"user:*", "role:*"},
		},
		{
			Name:        "user",
			Description: "Regular user with basic permissions",
			Grants:      []string{"user:read", "role:read"},
		},
	}
}

// Seeder populates the permission table from a catalog and creates the
// default roles with their grants. Every step is idempotent so the seeder
// can run on each startup or via the CLI.
type Seeder struct {
	service *Service
	logger  *slog.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(service *Service, logger *slog.Logger) *Seeder {
	return &Seeder{service: service, logger: logger}
}

// Seed creates catalog permissions, roles, and grants, skipping anything
// that already exists.
func (s *Seeder) Seed(ctx context.Context, catalog *Catalog, roles []RoleSeed) error {
	for _, desc := range catalog.All() {
		_, err := s.service.CreatePermission(ctx, desc.Resource, desc.Action, desc.Description)
		switch {
		case err == nil:
			s.log("seeded permission", slog.String("code", desc.Code()))
		case errors.Is(err, shared.ErrAlreadyExists):
			// already seeded
		default:
			return fmt.Errorf("rbac: seed permission %s: %w", desc.Code(), err)
		}
	}

	for _, seed := range roles {
		role, err := s.service.CreateRole(ctx, seed.Name, seed.Description)
		switch {
		case err == nil:
			s.log("seeded role", slog.String("name", role.Name))
		case errors.Is(err, shared.ErrAlreadyExists):
			role, err = s.service.FindRoleByName(ctx, seed.Name)
			if err != nil {
				return fmt.Errorf("rbac: seed role %s: %w", seed.Name, err)
			}
		default:
			return fmt.Errorf("rbac: seed role %s: %w", seed.Name, err)
		}

		for _, code := range seed.Grants {
			perm, err := s.service.FindPermissionByCode(ctx, code)
			if err != nil {
				return fmt.Errorf("rbac: seed grant %s for %s: %w", code, seed.Name, err)
			}
			if err := s.service.AssignPermissionToRole(ctx, role.ID, perm.ID); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					continue
				}
				return fmt.Errorf("rbac: seed grant %s for %s: %w", code, seed.Name, err)
			}
			s.log("seeded grant", slog.String("role", seed.Name), slog.String("code", code))
		}
	}
	return nil
}

func (s *Seeder) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
