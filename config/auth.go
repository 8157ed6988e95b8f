package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode selects how admins sign in.
type AuthMode string

const (
	AuthModeOAuth AuthMode = "oauth" // OIDC authorization-code flow
	AuthModeMock  AuthMode = "mock"  // fixed dev identity, never for production
)

// UnmarshalText accepts "oauth" or "mock" in any case.
func (a *AuthMode) UnmarshalText(text []byte) error {
	switch m := AuthMode(strings.ToLower(strings.TrimSpace(string(text)))); m {
	case AuthModeOAuth, AuthModeMock:
		*a = m
		return nil
	default:
		return fmt.Errorf("AUTH_MODE %q is not one of oauth, mock", string(m))
	}
}

// OAuthConfig points at the OIDC identity provider.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"dscatalog"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"dscatalog123"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// RolesClaim is a JMESPath expression selecting role names from the ID token claims.
	RolesClaim string `env:"ROLES_CLAIM"`
}

// DevAuthConfig is the identity AUTH_MODE=mock signs in. Lists are ';' separated.
type DevAuthConfig struct {
	UserID    string   `env:"USER_ID"    envDefault:"dev-user"`
	FirstName string   `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string   `env:"LAST_NAME"  envDefault:"User"`
	Email     string   `env:"EMAIL"      envDefault:"dev@dscatalog.local"`
	Groups    []string `env:"GROUPS"     envDefault:"catalog-admins" envSeparator:";"`
	Roles     []string `env:"ROLES"                                  envSeparator:";"`
}

// APITokenConfig configures HS256 bearer tokens accepted by the JSON API.
// An empty Secret disables bearer tokens.
type APITokenConfig struct {
	Secret string        `env:"SECRET"`
	Issuer string        `env:"ISSUER" envDefault:"dscatalog"`
	Leeway time.Duration `env:"LEEWAY" envDefault:"30s"`
}

// Enabled reports whether bearer tokens are accepted.
func (c APITokenConfig) Enabled() bool { return c.Secret != "" }

// AuthConfig covers sign-in, group-to-role mapping and bearer tokens.
type AuthConfig struct {
	Mode    AuthMode      `env:"AUTH_MODE" envDefault:"oauth"`
	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// APIToken configures bearer tokens for /api/navigation.
	APIToken APITokenConfig `envPrefix:"API_JWT_"`

	// AdminGroup is the IdP group granting ROLE_ADMIN.
	AdminGroup string `env:"ADMIN_GROUP,required"`

	// OperatorGroup is the IdP group granting ROLE_OPERATOR.
	OperatorGroup string `env:"OPERATOR_GROUP"`

	// UserGroup is the IdP group granting ROLE_USER.
	UserGroup string `env:"USER_GROUP,required"`

	// SessionPrefix is the Redis key prefix for sessions.
	SessionPrefix string `env:"SESSION_PREFIX" envDefault:"catalog:session:"`
}

// Sanitize trims values that commonly pick up whitespace from env files.
func (c *AuthConfig) Sanitize() {
	c.AdminGroup = strings.TrimSpace(c.AdminGroup)
	c.OperatorGroup = strings.TrimSpace(c.OperatorGroup)
	c.UserGroup = strings.TrimSpace(c.UserGroup)
	c.OAuth.RolesClaim = strings.TrimSpace(c.OAuth.RolesClaim)
	c.APIToken.Secret = strings.TrimSpace(c.APIToken.Secret)
	c.APIToken.Issuer = strings.TrimSpace(c.APIToken.Issuer)
	if c.APIToken.Leeway < 0 {
		c.APIToken.Leeway = 0
	}
	if c.SessionPrefix == "" {
		c.SessionPrefix = "catalog:session:"
	}
}
