package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dscatalog/catalog-admin/config"
	"github.com/dscatalog/catalog-admin/internal/adapters/jwtroles"
	"github.com/dscatalog/catalog-admin/internal/data"
	"github.com/dscatalog/catalog-admin/internal/observability/metrics"
	"github.com/dscatalog/catalog-admin/internal/ports"
	"github.com/dscatalog/catalog-admin/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth    *service.AuthService
	Tokens  *jwtroles.Verifier
	Users   *data.UserRoleRepo
	Metrics *metrics.Registry
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // nil when the role store is disabled
	RedisClient redis.UniversalClient // nil disables login
	Logger      *slog.Logger
}

// NewServices builds the service container from connected infrastructure.
func NewServices(ctx context.Context, deps *ServiceDeps) ServiceContainer {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	var container ServiceContainer
	if cfg.Observability.Metrics.Enabled {
		container.Metrics = metrics.New()
	}

	var stored ports.RoleRepository
	if deps.DB != nil {
		container.Users = data.NewUserRoleRepo(deps.DB, logger)
		stored = container.Users
	}

	container.Auth = BuildAuthService(ctx, AuthConfig{
		Auth:         cfg.Auth,
		RedisClient:  deps.RedisClient,
		Stored:       stored,
		OnRoleLookup: roleLookupObserver(container.Metrics),
		Logger:       logger,
	})
	container.Tokens = BuildTokenVerifier(cfg.Auth.APIToken, logger)

	logger.InfoContext(ctx, "services initialized",
		"auth_enabled", container.Auth != nil,
		"role_store_enabled", container.Users != nil,
		"bearer_tokens_enabled", container.Tokens != nil,
		"metrics_enabled", container.Metrics != nil,
	)
	return container
}

func roleLookupObserver(reg *metrics.Registry) func(error) {
	if reg == nil {
		return nil
	}
	return reg.ObserveRoleLookup
}

// RunConfig contains the dependencies for Run.
type RunConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func Run(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("run config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := NewHTTPServer(&HTTPServerConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ServeHTTP(server, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Shutdown must outlive the cancelled group context.
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(gctx),
			Server:  server,
			Timeout: cfg.Config.HTTP.ShutdownTimeout,
			Logger:  logger,
		})
	})

	return g.Wait()
}
