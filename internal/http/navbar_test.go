package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/domain/nav"
	"github.com/dscatalog/catalog-admin/internal/http/ui/viewmodel"
)

func requestAs(path string, roles ...domainauth.Role) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if roles == nil {
		return r
	}
	return r.WithContext(SetSessionInContext(r.Context(), &domainauth.Session{ID: "s", Roles: roles}))
}

func TestNavBar_AnonymousSeesUngatedEntries(t *testing.T) {
	got := NavBar(requestAs(nav.PathProducts))
	assert.Equal(t, []viewmodel.NavLink{
		{Label: "Produtos", Path: nav.PathProducts, Active: true},
		{Label: "Categorias", Path: nav.PathCategories},
	}, got)
}

func TestNavBar_AdminSeesUsers(t *testing.T) {
	got := NavBar(requestAs(nav.PathUsers, domainauth.RoleAdmin, domainauth.RoleUser))
	assert.Equal(t, []viewmodel.NavLink{
		{Label: "Produtos", Path: nav.PathProducts},
		{Label: "Categorias", Path: nav.PathCategories},
		{Label: "Usuarios", Path: nav.PathUsers, Active: true},
	}, got)
}

func TestNavBar_UnknownRoleGrantsNothing(t *testing.T) {
	got := NavBar(requestAs("/", domainauth.Role("ROLE_CLIENT")))
	assert.Len(t, got, 2)
	for _, l := range got {
		assert.False(t, l.Active)
	}
}

func TestIsActivePath(t *testing.T) {
	tests := []struct {
		entry, current string
		want           bool
	}{
		{nav.PathProducts, nav.PathProducts, true},
		{nav.PathProducts, nav.PathProducts + "/42", true},
		{nav.PathProducts, nav.PathProducts + "-archive", false},
		{nav.PathUsers, nav.PathProducts, false},
		{nav.PathUsers, "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isActivePath(tt.entry, tt.current), "%s vs %s", tt.entry, tt.current)
	}
}
