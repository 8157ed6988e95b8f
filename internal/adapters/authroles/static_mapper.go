package authroles

import (
	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

// StaticRoleMapper maps IdP groups to application roles by exact membership.
// Every matched group grants its role; a principal with no matching group gets no roles.
type StaticRoleMapper struct {
	AdminGroup    string
	OperatorGroup string
	UserGroup     string
}

func (m StaticRoleMapper) Map(groups []string) []domainauth.Role {
	set := domainauth.NewRoleSet()
	for _, g := range groups {
		if g == "" {
			continue
		}
		switch g {
		case m.AdminGroup:
			set[domainauth.RoleAdmin] = struct{}{}
		case m.OperatorGroup:
			set[domainauth.RoleOperator] = struct{}{}
		case m.UserGroup:
			set[domainauth.RoleUser] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set.Slice()
}
