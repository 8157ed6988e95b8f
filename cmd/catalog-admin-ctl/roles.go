package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dscatalog/catalog-admin/internal/data"
	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

const roleCommandTimeout = 30 * time.Second

type grantOptions struct {
	Email     string
	Role      domainauth.Role
	FirstName string
	LastName  string
}

type listUsersOptions struct {
	Limit  int
	Offset int
}

func runGrantRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseGrantFlags("grant-role", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, roleCommandTimeout)
	defer cancel()

	return withRoleStore(ctx, cmdCtx, func(repo *data.UserRoleRepo) error {
		if grantErr := repo.GrantRole(ctx, data.GrantRoleRequest{
			Email:     opts.Email,
			FirstName: opts.FirstName,
			LastName:  opts.LastName,
			Role:      opts.Role,
		}); grantErr != nil {
			return grantErr
		}
		return writef(os.Stdout, "Granted %s to %s\n", opts.Role, opts.Email)
	})
}

func runRevokeRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseGrantFlags("revoke-role", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, roleCommandTimeout)
	defer cancel()

	return withRoleStore(ctx, cmdCtx, func(repo *data.UserRoleRepo) error {
		removed, revokeErr := repo.RevokeRole(ctx, opts.Email, opts.Role)
		if revokeErr != nil {
			return revokeErr
		}
		if !removed {
			return writef(os.Stdout, "%s did not hold %s\n", opts.Email, opts.Role)
		}
		return writef(os.Stdout, "Revoked %s from %s\n", opts.Role, opts.Email)
	})
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseListUsersFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, roleCommandTimeout)
	defer cancel()

	return withRoleStore(ctx, cmdCtx, func(repo *data.UserRoleRepo) error {
		users, listErr := repo.ListUsers(ctx, opts.Limit, opts.Offset)
		if listErr != nil {
			return listErr
		}
		return renderUsers(os.Stdout, users)
	})
}

func parseGrantFlags(name string, args []string) (grantOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts grantOptions
		role string
	)
	fs.StringVar(&opts.Email, "email", "", "User email (required)")
	fs.StringVar(&role, "role", "", "Role to grant or revoke, e.g. ROLE_ADMIN or admin (required)")
	if name == "grant-role" {
		fs.StringVar(&opts.FirstName, "first-name", "", "First name used when the user is created")
		fs.StringVar(&opts.LastName, "last-name", "", "Last name used when the user is created")
	}

	if err := fs.Parse(args); err != nil {
		return grantOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return grantOptions{}, errors.New("--email is required")
	}
	opts.Role = normalizeRole(role)
	if opts.Role == "" {
		return grantOptions{}, errors.New("--role is required")
	}
	return opts, nil
}

func parseListUsersFlags(args []string) (listUsersOptions, error) {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listUsersOptions{}
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum users to list")
	fs.IntVar(&opts.Offset, "offset", 0, "Users to skip")

	if err := fs.Parse(args); err != nil {
		return listUsersOptions{}, err
	}
	if opts.Limit <= 0 {
		return listUsersOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listUsersOptions{}, errors.New("--offset must not be negative")
	}
	return opts, nil
}

// normalizeRole upper-cases raw and adds the ROLE_ prefix when missing.
func normalizeRole(raw string) domainauth.Role {
	r := strings.ToUpper(strings.TrimSpace(raw))
	if r == "" {
		return ""
	}
	if !strings.HasPrefix(r, "ROLE_") {
		r = "ROLE_" + r
	}
	return domainauth.Role(r)
}

func renderUsers(w io.Writer, users []data.UserRoles) error {
	if len(users) == 0 {
		return writeln(w, "No users found.")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "EMAIL\tNAME\tROLES"); err != nil {
		return err
	}
	for _, u := range users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		if name == "" {
			name = "-"
		}
		roles := "-"
		if len(u.Roles) > 0 {
			parts := make([]string, len(u.Roles))
			for i, r := range u.Roles {
				parts[i] = string(r)
			}
			roles = strings.Join(parts, ",")
		}
		if err := writef(tw, "%s\t%s\t%s\n", u.Email, name, roles); err != nil {
			return err
		}
	}
	return tw.Flush()
}
