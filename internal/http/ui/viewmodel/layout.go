// Package viewmodel holds the data shapes rendered by the admin templates.
package viewmodel

// User represents the authenticated user context exposed to templates.
type User struct {
	Email string
	Name  string
	Roles []string
}

// NavLink is one rendered navigation entry.
type NavLink struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

// Layout captures shared chrome metadata (titles, navigation, auth state).
type Layout struct {
	Title           string
	PageTitle       string
	CurrentPage     string
	IsAuthenticated bool
	User            *User
	Nav             []NavLink
}
