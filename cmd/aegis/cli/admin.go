// Package cli implements the administrative subcommands of the aegis binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/aegis-iam/aegis/internal/rbac"
	"github.com/aegis-iam/aegis/internal/users"
)

// AdminCLI dispatches administrative subcommands against live services.
type AdminCLI struct {
	logger *slog.Logger
	rbac   *rbac.Service
	users  *users.Service
}

// NewAdminCLI constructs the dispatcher.
func NewAdminCLI(logger *slog.Logger, rbacService *rbac.Service, usersService *users.Service) *AdminCLI {
	return &AdminCLI{logger: logger, rbac: rbacService, users: usersService}
}

// Run executes one subcommand.
//
//	rbac init                          seed the permission catalog and default roles
//	superuser create <name> <password> create an account holding the superuser role
//	role list                          print all roles with their grants
//	permission list                    print the permission catalog
func (c *AdminCLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("cli: missing command")
	}
	switch args[0] {
	case "rbac":
		if len(args) < 2 || args[1] != "init" {
			return fmt.Errorf("cli: unknown rbac subcommand %q", args[1:])
		}
		return c.initRBAC(ctx)
	case "superuser":
		if len(args) != 4 || args[1] != "create" {
			return errors.New("cli: usage: superuser create <username> <password>")
		}
		return c.createSuperuser(ctx, args[2], args[3])
	case "role":
		if len(args) < 2 || args[1] != "list" {
			return fmt.Errorf("cli: unknown role subcommand %q", args[1:])
		}
		return c.listRoles(ctx)
	case "permission":
		if len(args) < 2 || args[1] != "list" {
			return fmt.Errorf("cli: unknown permission subcommand %q", args[1:])
		}
		return c.listPermissions(ctx)
	default:
		return fmt.Errorf("cli: unknown command %q", args[0])
	}
}

func (c *AdminCLI) initRBAC(ctx context.Context) error {
	seeder := rbac.NewSeeder(c.rbac, c.logger)
	if err := seeder.Seed(ctx, rbac.DefaultCatalog(), rbac.DefaultRoles()); err != nil {
		return err
	}
	fmt.Println("rbac defaults seeded")
	return nil
}

func (c *AdminCLI) createSuperuser(ctx context.Context, username, plaintext string) error {
	u, err := c.users.Create(ctx, username, plaintext)
	if err != nil {
		return err
	}
	role, err := c.rbac.FindRoleByName(ctx, "superuser")
	if err != nil {
		return fmt.Errorf("cli: superuser role missing, run `rbac init` first: %w", err)
	}
	if err := c.rbac.AssignRoleToUser(ctx, u.ID, role.ID); err != nil {
		return err
	}
	fmt.Printf("superuser %q created with id %d\n", u.Username, u.ID)
	return nil
}

func (c *AdminCLI) listRoles(ctx context.Context) error {
	roles, err := c.rbac.ListRoles(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tPERMISSIONS")
	for _, role := range roles {
		perms, err := c.rbac.PermissionsOfRole(ctx, role.ID)
		if err != nil {
			return err
		}
		codes := make([]string, len(perms))
		for i, p := range perms {
			codes[i] = p.Code()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%v\n", role.ID, role.Name, role.Description, codes)
	}
	return tw.Flush()
}

func (c *AdminCLI) listPermissions(ctx context.Context) error {
	perms, err := c.rbac.ListPermissions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tDESCRIPTION")
	for _, p := range perms {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Code(), p.Description)
	}
	return tw.Flush()
}
