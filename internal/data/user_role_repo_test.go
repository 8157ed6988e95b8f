package data

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	apperrors "github.com/dscatalog/catalog-admin/internal/errors"
)

func newMockRepo(t *testing.T) (*UserRoleRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRoleRepo(db, nil), mock
}

func TestUserRoleRepo_RolesForEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(u.email) = lower($1)")).
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"authority"}).AddRow("ROLE_ADMIN").AddRow("ROLE_OPERATOR"))

	roles, err := repo.RolesForEmail(context.Background(), " admin@example.com ")

	require.NoError(t, err)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator}, roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoleRepo_RolesForEmail_UnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tb_user u")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"authority"}))

	roles, err := repo.RolesForEmail(context.Background(), "nobody@example.com")

	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestUserRoleRepo_RolesForEmail_StoreUnavailable(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		warnsOnce bool
	}{
		{"missing schema", pgerrcode.UndefinedTable, true},
		{"connection failure", pgerrcode.ConnectionFailure, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			for range 2 {
				mock.ExpectQuery(regexp.QuoteMeta("FROM tb_user u")).
					WillReturnError(&pgconn.PgError{Code: tt.code})
			}

			for range 2 {
				roles, err := repo.RolesForEmail(context.Background(), "a@example.com")
				require.Error(t, err)
				assert.True(t, apperrors.IsUnavailable(err), "got %v", err)
				assert.Nil(t, roles)
			}
			assert.Equal(t, tt.warnsOnce, repo.warnedMissingSchema.Load())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRoleRepo_RolesForEmail_Errors(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.RolesForEmail(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmailRequired)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tb_user u")).
		WillReturnError(context.DeadlineExceeded)

	_, err = repo.RolesForEmail(context.Background(), "a@example.com")
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestUserRoleRepo_GrantRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tb_user (email, first_name, last_name)")).
		WithArgs("maria@example.com", "Maria", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tb_role WHERE authority = $1")).
		WithArgs("ROLE_ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tb_user_role (user_id, role_id)")).
		WithArgs(int64(7), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.GrantRole(context.Background(), GrantRoleRequest{
		Email:     "maria@example.com",
		FirstName: "Maria",
		Role:      domainauth.RoleAdmin,
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoleRepo_GrantRole_UnknownRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tb_user")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tb_role")).
		WithArgs("ROLE_USER").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.GrantRole(context.Background(), GrantRoleRequest{Email: "x@example.com", Role: domainauth.RoleUser})

	require.ErrorIs(t, err, ErrUnknownRole)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoleRepo_GrantRole_Validation(t *testing.T) {
	repo, _ := newMockRepo(t)

	require.ErrorIs(t, repo.GrantRole(context.Background(), GrantRoleRequest{Role: domainauth.RoleAdmin}), ErrEmailRequired)

	err := repo.GrantRole(context.Background(), GrantRoleRequest{Email: "x@example.com"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "role", apperrors.GetField(err))
}

func TestUserRoleRepo_RevokeRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tb_user_role ur")).
		WithArgs("maria@example.com", "ROLE_ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tb_user_role ur")).
		WithArgs("maria@example.com", "ROLE_ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.RevokeRole(context.Background(), "maria@example.com", domainauth.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RevokeRole(context.Background(), "maria@example.com", domainauth.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUserRoleRepo_ListUsers(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("string_agg(r.authority")).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"email", "first_name", "last_name", "roles"}).
			AddRow("a@example.com", "Ana", "Lima", "ROLE_ADMIN,ROLE_OPERATOR").
			AddRow("b@example.com", "Bruno", "", ""))

	users, err := repo.ListUsers(context.Background(), 0, -1)

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator}, users[0].Roles)
	assert.Nil(t, users[1].Roles)
}

func TestUserRoleRepo_ListUsers_Error(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tb_user u")).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListUsers(context.Background(), 10, 0)
	require.ErrorContains(t, err, "list users")
}
