package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"strings"
	"time"
)

// Role represents a permission grant held by the authenticated principal.
// Keep string form for easy persistence, cookies and token claims.
type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleOperator Role = "ROLE_OPERATOR"
	RoleUser     Role = "ROLE_USER"
)

// ParseRoles normalizes raw role names (trimmed, empty values dropped, first occurrence wins).
func ParseRoles(raw []string) []Role {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Role, 0, len(raw))
	seen := make(map[Role]struct{}, len(raw))
	for _, r := range raw {
		role := Role(strings.TrimSpace(r))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

// RoleSet is the set of roles held by a principal. The zero value is an empty set.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		s[r] = struct{}{}
	}
	return s
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether the set holds at least one of roles.
// An empty roles argument never matches.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Union returns a new set holding the roles of both sets.
func (s RoleSet) Union(other RoleSet) RoleSet {
	out := make(RoleSet, len(s)+len(other))
	for r := range s {
		out[r] = struct{}{}
	}
	for r := range other {
		out[r] = struct{}{}
	}
	return out
}

// Slice returns the roles in sorted order.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., preferred_username or sub)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	Roles     []Role // roles asserted directly by the IdP, if any
	ExpiresAt time.Time
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Roles     []Role    `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RoleSet returns the session roles as a set.
func (s Session) RoleSet() RoleSet { return NewRoleSet(s.Roles...) }

// HasAnyRoles reports whether the session holds at least one of roles.
func (s Session) HasAnyRoles(roles ...Role) bool { return s.RoleSet().HasAny(roles...) }
