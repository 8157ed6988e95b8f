package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dscatalog/catalog-admin/config"
	"github.com/dscatalog/catalog-admin/internal/adapters/jwtroles"
	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildAuthServiceReturnsNilWithoutRedis(t *testing.T) {
	tests := []struct {
		name string
		auth config.AuthConfig
	}{
		{
			name: "dev auth mode",
			auth: config.AuthConfig{
				Mode:       config.AuthModeMock,
				AdminGroup: "catalog-admins",
				UserGroup:  "catalog-users",
				DevAuth: config.DevAuthConfig{
					UserID: "dev",
					Email:  "dev@dscatalog.local",
					Groups: []string{"catalog-admins"},
				},
			},
		},
		{
			name: "oauth mode",
			auth: config.AuthConfig{
				Mode:       config.AuthModeOAuth,
				AdminGroup: "catalog-admins",
				UserGroup:  "catalog-users",
				OAuth: config.OAuthConfig{
					ClientID:     "dscatalog",
					ClientSecret: "dscatalog123",
					DiscoveryURL: "https://issuer.example.com",
					RedirectURL:  "https://app.example.com/auth/callback",
					Scope:        "openid",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := BuildAuthService(context.Background(), AuthConfig{
				Auth:   tt.auth,
				Logger: discardLogger(),
			})
			assert.Nil(t, svc)
		})
	}
}

func TestBuildTokenVerifier(t *testing.T) {
	t.Run("disabled without secret", func(t *testing.T) {
		assert.Nil(t, BuildTokenVerifier(config.APITokenConfig{Issuer: "dscatalog"}, discardLogger()))
	})

	t.Run("round trips issued tokens", func(t *testing.T) {
		v := BuildTokenVerifier(config.APITokenConfig{
			Secret: "s3cret",
			Issuer: "dscatalog",
			Leeway: 30 * time.Second,
		}, discardLogger())
		require.NotNil(t, v)

		raw, err := v.Issue(jwtroles.IssueInput{
			UserName: "maria@gmail.com",
			Roles:    []domainauth.Role{domainauth.RoleAdmin},
			TTL:      time.Minute,
		})
		require.NoError(t, err)

		sess, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "maria@gmail.com", sess.Email)
		assert.True(t, sess.HasAnyRoles(domainauth.RoleAdmin))
	})
}

func TestRoleMapperUsesConfiguredGroups(t *testing.T) {
	m := roleMapper(config.AuthConfig{
		AdminGroup:    "catalog-admins",
		OperatorGroup: "catalog-ops",
		UserGroup:     "catalog-users",
	})

	assert.Equal(t, []domainauth.Role{domainauth.RoleUser}, m.Map([]string{"catalog-users"}))
	assert.Equal(t,
		[]domainauth.Role{domainauth.RoleAdmin, domainauth.RoleUser},
		m.Map([]string{"catalog-users", "catalog-admins"}),
	)
	assert.Nil(t, m.Map([]string{"finance"}))
}

func TestRedactRedisAddr(t *testing.T) {
	assert.Equal(t, "localhost:6379", redactRedisAddr("localhost:6379"))
	assert.Equal(t, "redis://cache:6379/0", redactRedisAddr("redis://cache:6379/0"))

	got := redactRedisAddr("redis://user:pw@cache:6379/0")
	assert.NotContains(t, got, "pw")
	assert.NotContains(t, got, "user")
	assert.Contains(t, got, "cache:6379/0")
}

func TestNewServicesWithoutInfrastructure(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Observability.Metrics.Enabled = true
	cfg.Auth.Mode = config.AuthModeMock

	c := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: discardLogger()})

	assert.Nil(t, c.Auth)
	assert.Nil(t, c.Users)
	assert.Nil(t, c.Tokens)
	assert.NotNil(t, c.Metrics)

	assert.Equal(t, ServiceContainer{}, NewServices(context.Background(), nil))
}

func TestNewHTTPServerDefaultsAddr(t *testing.T) {
	srv := NewHTTPServer(&HTTPServerConfig{Config: &config.AppConfig{}, Logger: discardLogger()})
	require.NotNil(t, srv)
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShutdownHTTPServerNilServer(t *testing.T) {
	assert.NoError(t, ShutdownHTTPServer(ShutdownConfig{}))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, logLevel(""))
	assert.Equal(t, slog.LevelInfo, logLevel("chatty"))
}

func TestAuthProviderExplainsWhyLoginIsDisabled(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	_, err := authProvider(context.Background(), AuthConfig{Auth: config.AuthConfig{Mode: config.AuthModeOAuth}})
	require.ErrorIs(t, err, errNoSessionStore)

	_, err = authProvider(context.Background(), AuthConfig{
		Auth:        config.AuthConfig{Mode: config.AuthModeOAuth, OAuth: config.OAuthConfig{ClientID: "dscatalog"}},
		RedisClient: client,
	})
	require.EqualError(t, err, "oauth mode missing [OAUTH_DISCOVERY_URL OAUTH_CLIENT_SECRET]")

	_, err = authProvider(context.Background(), AuthConfig{Auth: config.AuthConfig{Mode: "saml"}, RedisClient: client})
	require.ErrorContains(t, err, `unknown auth mode "saml"`)

	p, err := authProvider(context.Background(), AuthConfig{
		Auth: config.AuthConfig{
			Mode:    config.AuthModeMock,
			DevAuth: config.DevAuthConfig{UserID: "dev", Email: "dev@dscatalog.local"},
		},
		RedisClient: client,
	})
	require.NoError(t, err)
	assert.NotNil(t, p)
}
