package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dscatalog/catalog-admin/config"
	httpx "github.com/dscatalog/catalog-admin/internal/http"
)

// Body timeouts are fixed; the console only serves small pages and JSON.
const (
	serverReadTimeout  = 30 * time.Second
	serverWriteTimeout = 30 * time.Second
)

// HTTPServerConfig is what NewHTTPServer needs.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer assembles the router and middleware into an unstarted server.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := config.AppConfig{}
	if cfg.Config != nil {
		app = *cfg.Config
	}
	// A zero config still yields a usable server.
	app.HTTP.Sanitize()

	router := httpx.NewRouter(routerServices(cfg.Services, app, logger))
	// Recover is outermost so panics in logging are caught too.
	handler := httpx.Recover(logger)(httpx.Logging(logger)(router))

	return &http.Server{
		Addr:              app.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: app.HTTP.ReadHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       app.HTTP.IdleTimeout,
	}
}

func routerServices(sc ServiceContainer, app config.AppConfig, logger *slog.Logger) httpx.RouterServices {
	rs := httpx.RouterServices{
		Auth:         sc.Auth,
		Metrics:      sc.Metrics,
		CookieDomain: app.HTTP.CookieDomain,
		IsDev:        app.IsDev,
		Logger:       logger,
	}
	// Assign interfaces only from non-nil pointers so the router's nil checks hold.
	if sc.Tokens != nil {
		rs.Tokens = sc.Tokens
	}
	if sc.Users != nil {
		rs.Users = sc.Users
	}
	return rs
}

// ServeHTTP blocks serving requests. http.ErrServerClosed after Shutdown is reported as nil.
func ServeHTTP(server *http.Server, logger *slog.Logger) error {
	logger.Info("http server listening", slog.String("addr", server.Addr))
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ShutdownConfig controls ShutdownHTTPServer.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration // config.DefaultShutdownTimeout when not positive
	Logger  *slog.Logger
}

// ShutdownHTTPServer drains in-flight requests within the timeout. A nil server is a no-op.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}

	logf := func(msg string) {
		if cfg.Logger != nil {
			cfg.Logger.Info(msg, slog.Duration("timeout", timeout))
		}
	}
	logf("http server shutting down")

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	if err := cfg.Server.Shutdown(ctx); err != nil {
		return err
	}
	logf("http server stopped")
	return nil
}
