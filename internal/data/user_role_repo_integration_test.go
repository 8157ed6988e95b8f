package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/testutil"
)

func TestUserRoleRepo_Integration(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewUserRoleRepo(db, nil)
		ctx := context.Background()

		require.NoError(t, repo.GrantRole(ctx, GrantRoleRequest{
			Email: "Admin@Example.com", FirstName: "Admin", Role: domainauth.RoleAdmin,
		}))
		require.NoError(t, repo.GrantRole(ctx, GrantRoleRequest{
			Email: "Admin@Example.com", Role: domainauth.RoleOperator,
		}))
		// Idempotent.
		require.NoError(t, repo.GrantRole(ctx, GrantRoleRequest{
			Email: "Admin@Example.com", Role: domainauth.RoleAdmin,
		}))

		roles, err := repo.RolesForEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator}, roles)

		err = repo.GrantRole(ctx, GrantRoleRequest{Email: "admin@example.com", Role: "ROLE_NOPE"})
		require.ErrorIs(t, err, ErrUnknownRole)

		removed, err := repo.RevokeRole(ctx, "admin@example.com", domainauth.RoleOperator)
		require.NoError(t, err)
		assert.True(t, removed)

		users, err := repo.ListUsers(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "Admin", users[0].FirstName)
		assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin}, users[0].Roles)

		none, err := repo.RolesForEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
