// Package nav defines the admin navigation entries and the role gate that decides which are shown.
package nav

import (
	"slices"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

// Admin section paths.
const (
	PathProducts   = "/admin/products"
	PathCategories = "/admin/categories"
	PathUsers      = "/admin/users"
)

// Entry describes one navigation link.
// An empty RequiredRoles means the entry is visible to every authenticated user.
type Entry struct {
	Label         string
	Path          string
	RequiredRoles []domainauth.Role
}

// Gated reports whether the entry requires any role at all.
func (e Entry) Gated() bool { return len(e.RequiredRoles) > 0 }

// AdminEntries returns the admin navigation in display order.
// A fresh slice is returned on every call so callers cannot mutate the definition.
func AdminEntries() []Entry {
	return []Entry{
		{Label: "Produtos", Path: PathProducts},
		{Label: "Categorias", Path: PathCategories},
		{Label: "Usuarios", Path: PathUsers, RequiredRoles: []domainauth.Role{domainauth.RoleAdmin}},
	}
}

// HasAnyRolesFunc answers whether the current principal holds at least one of roles.
type HasAnyRolesFunc func(roles []domainauth.Role) bool

// Filter returns the entries whose gate passes, in declaration order.
// hasAnyRoles is consulted once per gated entry and never for ungated ones.
// A nil hasAnyRoles hides every gated entry.
func Filter(entries []Entry, hasAnyRoles HasAnyRolesFunc) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Gated() && (hasAnyRoles == nil || !hasAnyRoles(slices.Clone(e.RequiredRoles))) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Visible returns the entries the holder of current may see.
func Visible(entries []Entry, current domainauth.RoleSet) []Entry {
	return Filter(entries, func(roles []domainauth.Role) bool {
		return current.HasAny(roles...)
	})
}

// Allows reports whether current passes the gate of the entry registered for path.
// Paths with no entry are not gated.
func Allows(entries []Entry, path string, current domainauth.RoleSet) bool {
	for _, e := range entries {
		if e.Path != path {
			continue
		}
		return !e.Gated() || current.HasAny(e.RequiredRoles...)
	}
	return true
}
