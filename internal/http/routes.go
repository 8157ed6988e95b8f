package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	catalogadmin "github.com/dscatalog/catalog-admin"
	"github.com/dscatalog/catalog-admin/internal/domain/nav"
	"github.com/dscatalog/catalog-admin/internal/observability/metrics"
	"github.com/dscatalog/catalog-admin/internal/ports"
	"github.com/dscatalog/catalog-admin/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth   *service.AuthService // optional; without it every page is anonymous
	Tokens ports.TokenVerifier  // optional; enables bearer tokens on /api/navigation
	Users  UserDirectory        // optional; lists grants on the Usuarios page
	// Metrics is optional; when set /metrics is served and routes are instrumented.
	Metrics      *metrics.Registry
	CookieDomain string
	IsDev        bool
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router with browser middleware.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Keep a typed nil *AuthService out of the interface.
	var authSvc AuthServiceInterface
	if services.Auth != nil {
		authSvc = services.Auth
	}

	var navObserver NavRenderObserver
	if services.Metrics != nil {
		navObserver = services.Metrics
		mux.Handle("GET /metrics", services.Metrics.Handler())
	}
	instrument := func(route string, h http.Handler) http.Handler {
		return services.Metrics.Instrument(route, h)
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler)) // also answers HEAD
	mux.Handle("GET /static/", staticHandler(services.IsDev, logger))

	if authSvc != nil {
		registerAuthRoutes(mux, &AuthHandlers{Svc: authSvc, CookieDomain: services.CookieDomain, Logger: logger})
	}

	navHandlers := &NavigationHandlers{
		Sessions: authSvc,
		Tokens:   services.Tokens,
		Metrics:  navObserver,
		Logger:   logger,
	}
	mux.Handle("GET /api/navigation", instrument("api_navigation", http.HandlerFunc(navHandlers.Get)))

	uiHandlers := setupUIHandlers(services, navObserver, logger)
	if uiHandlers != nil {
		registerUIRoutes(mux, uiHandlers, uiRouteConfig{Auth: authSvc, Instrument: instrument})
	}
	// Anything no other pattern claims. /static/ misses are answered by the file server.
	mux.Handle("/", OptionalAuth(authSvc)(http.HandlerFunc(uiHandlers.NotFound)))

	return BrowserDetection()(mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func templateFS(isDev bool, logger *slog.Logger) fs.FS {
	if isDev {
		return os.DirFS(TemplatePathFromRoot)
	}
	sub, err := fs.Sub(catalogadmin.TemplateFS, "frontend/templates")
	if err != nil {
		logger.Warn("embedded templates unavailable; falling back to disk", "error", err)
		return os.DirFS(TemplatePathFromRoot)
	}
	return sub
}

// setupUIHandlers returns nil when templates cannot be parsed; UI routes are then not registered.
func setupUIHandlers(services RouterServices, observer NavRenderObserver, logger *slog.Logger) *UIHandlers {
	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS(services.IsDev, logger),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create template renderer", slog.Any("error", err))
		return nil
	}
	return &UIHandlers{
		T:         tr,
		Directory: services.Users,
		Metrics:   observer,
		IsDev:     services.IsDev,
		Logger:    logger,
	}
}

// staticHandler serves /static/ from disk in dev mode so edits show up without a rebuild.
func staticHandler(isDev bool, logger *slog.Logger) http.Handler {
	root, cacheControl := http.FileSystem(http.Dir("frontend/static")), "no-cache, no-store, must-revalidate"
	if !isDev {
		cacheControl = "public, max-age=3600"
		if sub, err := fs.Sub(catalogadmin.StaticFS, "frontend/static"); err == nil {
			root = http.FS(sub)
		} else {
			logger.Warn("embedded static assets unavailable; serving from disk", slog.Any("error", err))
		}
	}
	files := http.StripPrefix("/static/", http.FileServer(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControl)
		files.ServeHTTP(w, r)
	})
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

// uiRouteConfig holds configuration for UI route registration.
type uiRouteConfig struct {
	Auth       AuthServiceInterface
	Instrument func(route string, h http.Handler) http.Handler
}

// sectionWrap guards an admin section with the gate of its navigation entry.
// Ungated sections only require a session.
func (cfg uiRouteConfig) sectionWrap(path string) func(http.Handler) http.Handler {
	entries := nav.AdminEntries()
	switch {
	case !nav.Allows(entries, path, nil): // gated: a principal without roles is refused
		return RequireSectionBrowser(cfg.Auth, entries, path)
	case cfg.Auth == nil:
		return OptionalAuth(nil)
	default:
		return RequireAuthBrowser(cfg.Auth)
	}
}

func registerUIRoutes(mux *http.ServeMux, h *UIHandlers, cfg uiRouteConfig) {
	sections := []struct {
		route   string
		path    string
		handler http.HandlerFunc
	}{
		{"admin_products", nav.PathProducts, h.Products},
		{"admin_categories", nav.PathCategories, h.Categories},
		{"admin_users", nav.PathUsers, h.Users},
	}
	for _, s := range sections {
		mux.Handle("GET "+s.path, cfg.Instrument(s.route, cfg.sectionWrap(s.path)(s.handler)))
	}

	mux.Handle("GET /{$}", cfg.sectionWrap("/")(http.HandlerFunc(h.Index)))
	mux.Handle("GET /auth/signed-out", http.HandlerFunc(h.SignedOut))
}
