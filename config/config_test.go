package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "OAuth")
	t.Setenv("ADMIN_GROUP", "cn=catalog-admins,ou=groups,dc=dscatalog,dc=com")
	t.Setenv("OPERATOR_GROUP", "cn=catalog-operators,ou=groups,dc=dscatalog,dc=com")
	t.Setenv("USER_GROUP", "cn=catalog-users,ou=groups,dc=dscatalog,dc=com")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://admin.dscatalog.com/auth/callback")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.dscatalog.com/.well-known/openid-configuration")
	t.Setenv("OAUTH_SCOPE", "openid profile email")
	t.Setenv("OAUTH_ROLES_CLAIM", "realm_access.roles")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_EMAIL", "dev@dscatalog.com")
	t.Setenv("DEV_AUTH_GROUPS", "admins;devs")
	t.Setenv("DEV_AUTH_ROLES", "ROLE_ADMIN")
	t.Setenv("API_JWT_SECRET", "jwt-secret")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeOAuth,
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://admin.dscatalog.com/auth/callback",
			Scope:        "openid profile email",
			DiscoveryURL: "https://login.dscatalog.com/.well-known/openid-configuration",
			RolesClaim:   "realm_access.roles",
		},
		DevAuth: DevAuthConfig{
			UserID:    "dev-user",
			FirstName: "Dev",
			LastName:  "User",
			Email:     "dev@dscatalog.com",
			Groups:    []string{"admins", "devs"},
			Roles:     []string{"ROLE_ADMIN"},
		},
		APIToken: APITokenConfig{
			Secret: "jwt-secret",
			Issuer: "dscatalog",
			Leeway: 30 * time.Second,
		},
		AdminGroup:    "cn=catalog-admins,ou=groups,dc=dscatalog,dc=com",
		OperatorGroup: "cn=catalog-operators,ou=groups,dc=dscatalog,dc=com",
		UserGroup:     "cn=catalog-users,ou=groups,dc=dscatalog,dc=com",
		SessionPrefix: "catalog:session:",
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
	if !cfg.Auth.APIToken.Enabled() {
		t.Fatalf("expected bearer tokens to be enabled")
	}
}

func TestAppConfig_RequiredGroups(t *testing.T) {
	t.Setenv("USER_GROUP", "users")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatalf("expected error when ADMIN_GROUP is missing")
	}
}

func TestAuthMode_UnmarshalText(t *testing.T) {
	var m AuthMode
	if err := m.UnmarshalText([]byte(" MOCK ")); err != nil || m != AuthModeMock {
		t.Fatalf("expected mock, got %q err=%v", m, err)
	}
	if err := m.UnmarshalText([]byte("saml")); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("ADMIN_GROUP", "admins")
	t.Setenv("USER_GROUP", "users")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected 10s shutdown timeout, got %v", cfg.HTTP.ShutdownTimeout)
	}
	if !cfg.Postgres.Enabled || !cfg.Postgres.RunMigrationsOnStart {
		t.Errorf("expected role store and migrations enabled by default")
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Errorf("expected metrics enabled by default")
	}
	if cfg.Auth.APIToken.Enabled() {
		t.Errorf("expected bearer tokens disabled without a secret")
	}
	if cfg.Redis.URI != "localhost:6379" {
		t.Errorf("unexpected redis uri %q", cfg.Redis.URI)
	}
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: 5432, User: "catalog", Password: "p@ss word", Name: "catalog", SSLMode: "require"}
	want := "postgres://catalog:p%40ss%20word@db:5432/catalog?sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}

func TestDBConfig_Sanitize(t *testing.T) {
	cfg := DBConfig{Host: " db ", Port: -1}
	cfg.Sanitize()
	if cfg.Host != "db" || cfg.Port != 5432 || cfg.SSLMode != "disable" {
		t.Fatalf("unexpected sanitized config: %#v", cfg)
	}
}

func TestRedisConfig_Sanitize(t *testing.T) {
	cfg := RedisConfig{SentinelNodes: []string{" a:26379 ", "", "b:26379"}, DB: -3}
	cfg.Sanitize()
	if !reflect.DeepEqual(cfg.SentinelNodes, []string{"a:26379", "b:26379"}) {
		t.Fatalf("unexpected nodes: %v", cfg.SentinelNodes)
	}
	if cfg.DB != 0 {
		t.Fatalf("expected db clamped to 0, got %d", cfg.DB)
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{Addr: "  ", ShutdownTimeout: -time.Second}
	cfg.Sanitize()
	if cfg.Addr != ":8080" || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected sanitized config: %#v", cfg)
	}
	if cfg.ReadHeaderTimeout != DefaultReadHeaderTimeout || cfg.IdleTimeout != DefaultIdleTimeout {
		t.Fatalf("expected server timeout defaults, got %#v", cfg)
	}

	kept := HTTPConfig{Addr: ":9090", ReadHeaderTimeout: 3 * time.Second}
	kept.Sanitize()
	if kept.Addr != ":9090" || kept.ReadHeaderTimeout != 3*time.Second {
		t.Fatalf("configured values must survive sanitize: %#v", kept)
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatalf("expected dev mode from NODE_ENV")
	}
}
