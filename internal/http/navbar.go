package httpx

import (
	"net/http"
	"strings"

	"github.com/dscatalog/catalog-admin/internal/domain/nav"
	"github.com/dscatalog/catalog-admin/internal/http/ui/viewmodel"
)

// NavBar returns the admin navigation visible to the request's principal.
// The link matching the request path is marked active.
func NavBar(r *http.Request) []viewmodel.NavLink {
	return navBarFor(r, r.URL.Path)
}

func navBarFor(r *http.Request, currentPath string) []viewmodel.NavLink {
	return navLinks(nav.Visible(nav.AdminEntries(), rolesFromRequest(r)), currentPath)
}

func navLinks(entries []nav.Entry, currentPath string) []viewmodel.NavLink {
	links := make([]viewmodel.NavLink, len(entries))
	for i, e := range entries {
		links[i] = viewmodel.NavLink{
			Label:  e.Label,
			Path:   e.Path,
			Active: isActivePath(e.Path, currentPath),
		}
	}
	return links
}

func isActivePath(entryPath, currentPath string) bool {
	return currentPath == entryPath || strings.HasPrefix(currentPath, entryPath+"/")
}
