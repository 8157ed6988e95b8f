package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/domain/nav"
)

var (
	errAuthRequired = errors.New("authentication required")
	errForbidden    = errors.New("insufficient permissions")
)

const accessDeniedText = "Acesso negado: você não tem permissão para acessar este recurso"

// Logging logs one line per request once the handler returns.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			began := time.Now()
			next.ServeHTTP(rec, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(began)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Recover turns a handler panic into a logged 500.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				logger.ErrorContext(r.Context(), "panic",
					slog.Any("error", rv),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// sessionFromCookie resolves the session cookie through authSvc. Any failure reads as anonymous.
func sessionFromCookie(r *http.Request, authSvc AuthServiceInterface) *domainauth.Session {
	if authSvc == nil {
		return nil
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	sess, err := authSvc.GetSession(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return sess
}

// OptionalAuth attaches the session when there is one and never blocks.
func OptionalAuth(authSvc AuthServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess := sessionFromCookie(r, authSvc); sess != nil {
				r = r.WithContext(SetSessionInContext(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type browserRequestKey struct{}

// BrowserDetection classifies the request once so later layers agree on HTML versus JSON.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest reports the classification made by BrowserDetection, computing it when absent.
func IsBrowserRequest(r *http.Request) bool {
	if v, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return v
	}
	return isBrowserRequest(r)
}

func isBrowserRequest(r *http.Request) bool {
	for _, prefix := range []string{"/api/", "/static/"} {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	if IsHTMX(r) {
		return true
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html")
}

// RequireAuthBrowser lets any signed-in principal through.
func RequireAuthBrowser(authSvc AuthServiceInterface) func(http.Handler) http.Handler {
	return requireSession(authSvc, nil)
}

// RequireSectionBrowser lets through principals the navigation gate admits to path.
// The navbar applies the same gate, so a hidden link is also a forbidden page.
func RequireSectionBrowser(authSvc AuthServiceInterface, entries []nav.Entry, path string) func(http.Handler) http.Handler {
	return requireSession(authSvc, func(s *domainauth.Session) bool {
		return nav.Allows(entries, path, s.RoleSet())
	})
}

// requireSession answers 401/redirect without a session and 403 when allowed rejects it.
func requireSession(authSvc AuthServiceInterface, allowed func(*domainauth.Session) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromCookie(r, authSvc)
			switch {
			case sess == nil:
				denyAnonymous(w, r)
			case allowed != nil && !allowed(sess):
				denyForbidden(w, r)
			default:
				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), sess)))
			}
		})
	}
}

func denyAnonymous(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errAuthRequired})
		return
	}
	back := url.QueryEscape(redirectPathForRequest(r))
	if IsHTMX(r) {
		// htmx cannot follow the IdP redirect inside a swap; bounce the whole page instead.
		SetHXRedirect(w, "/auth/signed-out?redirect_uri="+back)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/auth/login?redirect_uri="+back, http.StatusSeeOther)
}

func denyForbidden(w http.ResponseWriter, r *http.Request) {
	if IsBrowserRequest(r) {
		http.Error(w, accessDeniedText, http.StatusForbidden)
		return
	}
	WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "insufficient_permissions", Err: errForbidden})
}

// redirectPathForRequest picks the local path to come back to after login.
// htmx requests report the page the user was on in Hx-Current-Url.
func redirectPathForRequest(r *http.Request) string {
	if IsHTMX(r) {
		if u, err := url.Parse(r.Header.Get("Hx-Current-Url")); err == nil && u.Path != "" {
			if u.IsAbs() || u.Host == "" {
				return safeRedirectPath(u.RequestURI())
			}
		}
	}
	return safeRedirectPath(r.URL.RequestURI())
}

// safeRedirectPath returns candidate when it is a path on this origin and "/" otherwise.
func safeRedirectPath(candidate string) string {
	u, err := url.Parse(candidate)
	switch {
	case candidate == "", err != nil, u.IsAbs(), u.Host != "":
		return "/"
	case !strings.HasPrefix(u.Path, "/"), strings.HasPrefix(u.Path, "//"):
		return "/"
	}
	return candidate
}
