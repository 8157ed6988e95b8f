package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dscatalog/catalog-admin/internal/data"
	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	authmocks "github.com/dscatalog/catalog-admin/internal/mocks/auth"
	"github.com/dscatalog/catalog-admin/internal/observability/metrics"
)

// roleLookupCounts flattens catalog_role_lookups_total into "result/error_class" keys.
func roleLookupCounts(t *testing.T, reg *metrics.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gatherer().Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "catalog_role_lookups_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out[labels["result"]+"/"+labels["error_class"]] += m.GetCounter().GetValue()
		}
	}
	return out
}

func TestAuthService_ResolveRoles_UnavailableStoreFallsBackToMappedRoles(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"role schema missing", pgerrcode.UndefinedTable},
		{"connection failure", pgerrcode.ConnectionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			mock.ExpectQuery(regexp.QuoteMeta("FROM tb_user u")).
				WithArgs("ana@example.com").
				WillReturnError(&pgconn.PgError{Code: tt.code})

			reg := metrics.New()
			service := NewAuthService(AuthServiceOptions{
				Provider:     authmocks.NewMockAuthProvider(),
				Sessions:     authmocks.NewMemorySessionStore(),
				Roles:        authmocks.StaticRoleMapper{AdminGroup: "admins"},
				Stored:       data.NewUserRoleRepo(db, nil),
				OnRoleLookup: reg.ObserveRoleLookup,
			})

			roles, err := service.ResolveRoles(context.Background(), domainauth.Identity{
				UserID: "ana",
				Email:  "ana@example.com",
				Groups: []string{"admins"},
			})

			require.NoError(t, err)
			assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin}, roles)
			assert.Equal(t, map[string]float64{"degraded/unavailable": 1}, roleLookupCounts(t, reg))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAuthService_CompleteLogin_SucceedsWithoutRoleStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectQuery(regexp.QuoteMeta("FROM tb_user u")).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ConnectionFailure})

	sessions := authmocks.NewMemorySessionStore()
	service := newTestAuthService(authmocks.NewMockAuthProvider(), sessions, data.NewUserRoleRepo(db, nil))

	result, err := service.CompleteLogin(context.Background(), validLoginInput())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, sessions.Len())
}
