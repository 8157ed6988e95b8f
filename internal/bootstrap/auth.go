package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dscatalog/catalog-admin/config"
	"github.com/dscatalog/catalog-admin/internal/adapters/authroles"
	"github.com/dscatalog/catalog-admin/internal/adapters/devauth"
	"github.com/dscatalog/catalog-admin/internal/adapters/jwtroles"
	"github.com/dscatalog/catalog-admin/internal/adapters/oidc"
	redisadapter "github.com/dscatalog/catalog-admin/internal/adapters/redis"
	"github.com/dscatalog/catalog-admin/internal/ports"
	"github.com/dscatalog/catalog-admin/internal/service"
)

// AuthConfig is what BuildAuthService needs.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	// Stored adds roles granted in the role store. Optional.
	Stored ports.RoleRepository
	// OnRoleLookup observes stored-role lookups. Optional.
	OnRoleLookup func(err error)
	Logger       *slog.Logger
}

var errNoSessionStore = errors.New("redis client not configured")

// BuildAuthService wires login for the configured mode.
// It returns nil, and logs why, when login cannot be offered; the console then serves anonymous pages only.
func BuildAuthService(ctx context.Context, cfg AuthConfig) *service.AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := authProvider(ctx, cfg)
	if err != nil {
		logger.WarnContext(ctx, "login disabled", slog.String("mode", string(cfg.Auth.Mode)), slog.Any("error", err))
		return nil
	}
	if cfg.Auth.Mode == config.AuthModeMock {
		logger.WarnContext(ctx, "dev auth enabled; every login is the configured dev identity",
			slog.String("user_id", cfg.Auth.DevAuth.UserID))
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Provider:     provider,
		Sessions:     redisadapter.NewSessionStore(cfg.RedisClient, redisadapter.WithPrefix(cfg.Auth.SessionPrefix)),
		Roles:        roleMapper(cfg.Auth),
		Stored:       cfg.Stored,
		OnRoleLookup: cfg.OnRoleLookup,
		Logger:       logger,
	})
}

// authProvider picks the IdP adapter for cfg.Auth.Mode.
//
//nolint:ireturn // the mode decides the concrete provider.
func authProvider(ctx context.Context, cfg AuthConfig) (ports.AuthProvider, error) {
	if cfg.RedisClient == nil {
		return nil, errNoSessionStore
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		dev := cfg.Auth.DevAuth
		p, err := devauth.NewProvider(devauth.Config{
			UserID:    dev.UserID,
			FirstName: dev.FirstName,
			LastName:  dev.LastName,
			Email:     dev.Email,
			Groups:    dev.Groups,
			Roles:     dev.Roles,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		return p, nil

	case config.AuthModeOAuth:
		o := cfg.Auth.OAuth
		var missing []string
		for _, req := range [...]struct{ env, value string }{
			{"OAUTH_DISCOVERY_URL", o.DiscoveryURL},
			{"OAUTH_CLIENT_ID", o.ClientID},
			{"OAUTH_CLIENT_SECRET", o.ClientSecret},
		} {
			if req.value == "" {
				missing = append(missing, req.env)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("oauth mode missing %v", missing)
		}
		p, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			RedirectURL:  o.RedirectURL,
			Scope:        o.Scope,
			DiscoveryURL: o.DiscoveryURL,
			RolesClaim:   o.RolesClaim,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

func roleMapper(auth config.AuthConfig) authroles.StaticRoleMapper {
	return authroles.StaticRoleMapper{
		AdminGroup:    auth.AdminGroup,
		OperatorGroup: auth.OperatorGroup,
		UserGroup:     auth.UserGroup,
	}
}

// BuildTokenVerifier returns the bearer token verifier, or nil when API_JWT_SECRET is unset.
func BuildTokenVerifier(cfg config.APITokenConfig, logger *slog.Logger) *jwtroles.Verifier {
	if !cfg.Enabled() {
		return nil
	}
	v, err := jwtroles.NewVerifier(jwtroles.Config{Secret: cfg.Secret, Issuer: cfg.Issuer, Leeway: cfg.Leeway})
	if err != nil {
		if logger != nil {
			logger.Warn("bearer tokens disabled", slog.Any("error", err))
		}
		return nil
	}
	return v
}
