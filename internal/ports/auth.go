// Package ports declares the boundaries between the auth service and its adapters.
// Implementations live in internal/adapters and internal/data.
package ports

import (
	"context"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

// AuthProvider runs the interactive login against an identity provider.
type AuthProvider interface {
	// Begin returns the provider URL to send the browser to, plus the state and nonce to remember.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)
	// Exchange trades the callback code for the principal, checking state and nonce.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// BeginInput carries the local path to return to after login.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput is the callback code plus the state and nonce stored by Begin.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SessionStore keeps sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper turns IdP groups into roles. Unmatched groups contribute nothing.
type RoleMapper interface {
	Map(groups []string) []domainauth.Role
}

// RoleRepository returns the roles granted to email in the role store.
// An unknown email has no roles and is not an error.
type RoleRepository interface {
	RolesForEmail(ctx context.Context, email string) ([]domainauth.Role, error)
}

// TokenVerifier turns a bearer token into the principal it names.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (domainauth.Session, error)
}
