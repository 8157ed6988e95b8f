package oidc

import (
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

// standardClaims is the subset of OIDC and AD/ADFS claim shapes we read.
type standardClaims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	SamAccountName    string   `json:"samaccountname"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	FirstName         string   `json:"firstname"`
	LastName          string   `json:"lastname"`
	Email             string   `json:"email"`
	Mail              string   `json:"mail"`
	Groups            []string `json:"groups"`
	MemberOf          []string `json:"memberof"`
	Nonce             string   `json:"nonce"`
}

type idFields struct {
	userID     string
	email      string
	givenName  string
	familyName string
	groups     []string
	roles      []domainauth.Role
}

func (f idFields) complete() bool { return f.userID != "" && f.email != "" }

// mapClaims maps decoded claims into idFields using precedence rules.
func mapClaims(c standardClaims) idFields {
	return idFields{
		userID:     firstNonEmpty(c.PreferredUsername, c.SamAccountName, c.Sub),
		email:      firstNonEmpty(c.Email, c.Mail),
		givenName:  firstNonEmpty(c.GivenName, c.FirstName),
		familyName: firstNonEmpty(c.FamilyName, c.LastName),
		groups:     firstNonEmptySlice(c.Groups, c.MemberOf),
	}
}

// fillMissing copies values from src into fields still empty on f.
func fillMissing(f *idFields, src idFields) {
	if f.userID == "" {
		f.userID = src.userID
	}
	if f.email == "" {
		f.email = src.email
	}
	if f.givenName == "" {
		f.givenName = src.givenName
	}
	if f.familyName == "" {
		f.familyName = src.familyName
	}
	if len(f.groups) == 0 {
		f.groups = src.groups
	}
	if len(f.roles) == 0 {
		f.roles = src.roles
	}
}

// RoleExtractor pulls role names out of a raw claim document using a JMESPath expression,
// e.g. "realm_access.roles" or "authorities".
type RoleExtractor struct {
	expr string
}

// NewRoleExtractor validates expr. An empty expression yields an extractor that finds nothing.
func NewRoleExtractor(expr string) (RoleExtractor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return RoleExtractor{}, nil
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return RoleExtractor{}, fmt.Errorf("compile roles claim %q: %w", expr, err)
	}
	return RoleExtractor{expr: expr}, nil
}

var errRolesClaimShape = errors.New("roles claim must be a string or list of strings")

// Extract evaluates the expression against claims. A missing claim yields no roles.
func (e RoleExtractor) Extract(claims map[string]any) ([]domainauth.Role, error) {
	if e.expr == "" || claims == nil {
		return nil, nil
	}
	res, err := jmespath.Search(e.expr, claims)
	if err != nil {
		return nil, fmt.Errorf("evaluate roles claim: %w", err)
	}
	switch v := res.(type) {
	case nil:
		return nil, nil
	case string:
		return domainauth.ParseRoles(strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })), nil
	case []any:
		raw := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errRolesClaimShape
			}
			raw = append(raw, s)
		}
		return domainauth.ParseRoles(raw), nil
	default:
		return nil, errRolesClaimShape
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptySlice(vals ...[]string) []string {
	for _, v := range vals {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
