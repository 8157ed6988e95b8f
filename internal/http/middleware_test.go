package httpx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/domain/nav"
)

func sessionWithRoles(roles ...domainauth.Role) *mockAuthService {
	return &mockAuthService{
		getSessionFunc: func(_ context.Context, id string) (*domainauth.Session, error) {
			return &domainauth.Session{ID: id, Roles: roles}, nil
		},
	}
}

func noSession() *mockAuthService {
	return &mockAuthService{
		getSessionFunc: func(context.Context, string) (*domainauth.Session, error) {
			return nil, errors.New("session not found")
		},
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if GetSessionFromContext(r.Context()) == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func serveWith(mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	BrowserDetection()(mw(okHandler)).ServeHTTP(w, req)
	return w
}

func TestRequireSectionBrowser(t *testing.T) {
	tests := []struct {
		name     string
		svc      AuthServiceInterface
		accept   string
		htmx     bool
		wantCode int
	}{
		{name: "admin passes", svc: sessionWithRoles(domainauth.RoleAdmin), accept: "text/html", wantCode: http.StatusOK},
		{
			name:     "admin among others passes",
			svc:      sessionWithRoles(domainauth.RoleUser, domainauth.RoleAdmin),
			accept:   "text/html",
			wantCode: http.StatusOK,
		},
		{name: "user denied in browser", svc: sessionWithRoles(domainauth.RoleUser), accept: "text/html", wantCode: http.StatusForbidden},
		{name: "no roles denied", svc: sessionWithRoles(), accept: "text/html", wantCode: http.StatusForbidden},
		{name: "user denied for API", svc: sessionWithRoles(domainauth.RoleUser), accept: "application/json", wantCode: http.StatusForbidden},
		{name: "anonymous browser redirected", svc: noSession(), accept: "text/html", wantCode: http.StatusSeeOther},
		{name: "anonymous API unauthorized", svc: noSession(), accept: "application/json", wantCode: http.StatusUnauthorized},
		{name: "anonymous htmx gets hx-redirect", svc: noSession(), htmx: true, wantCode: http.StatusOK},
		{name: "nil service redirects", svc: nil, accept: "text/html", wantCode: http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.htmx {
				req.Header.Set("Hx-Request", "true")
			}
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess"})

			w := serveWith(RequireSectionBrowser(tt.svc, nav.AdminEntries(), nav.PathUsers), req)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.htmx {
				assert.Equal(t, "/auth/signed-out?redirect_uri=%2Fadmin%2Fusers", w.Header().Get("Hx-Redirect"))
			}
		})
	}
}

func TestRequireSectionBrowser_UngatedSectionOnlyNeedsSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, nav.PathProducts, nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess"})

	w := serveWith(RequireSectionBrowser(sessionWithRoles(), nav.AdminEntries(), nav.PathProducts), req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthBrowser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/products?page=2", nil)
	req.Header.Set("Accept", "text/html")
	w := serveWith(RequireAuthBrowser(noSession()), req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth/login?redirect_uri=%2Fadmin%2Fproducts%3Fpage%3D2", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess"})
	w = serveWith(RequireAuthBrowser(sessionWithRoles()), req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := serveWith(OptionalAuth(noSession()), req)
	assert.Equal(t, http.StatusTeapot, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess"})
	w = serveWith(OptionalAuth(sessionWithRoles(domainauth.RoleUser)), req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedirectPathForRequest_PrefersHTMXCurrentURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Hx-Request", "true")
	req.Header.Set("Hx-Current-Url", "https://admin.dscatalog.test/admin/categories?q=1")
	assert.Equal(t, "/admin/categories?q=1", redirectPathForRequest(req))
}

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                         "/",
		"/admin/users":             "/admin/users",
		"/admin/users?tab=1":       "/admin/users?tab=1",
		"https://evil.example.com": "/",
		"//evil.example.com":       "/",
		"admin/users":              "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeRedirectPath(in), "input %q", in)
	}
}

func TestIsBrowserRequest(t *testing.T) {
	api := httptest.NewRequest(http.MethodGet, "/api/navigation", nil)
	api.Header.Set("Accept", "text/html")
	assert.False(t, isBrowserRequest(api))

	hx := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	hx.Header.Set("Accept", "application/json")
	hx.Header.Set("Hx-Request", "true")
	assert.True(t, isBrowserRequest(hx))

	plain := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	assert.True(t, isBrowserRequest(plain))
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/products", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "boom")
}

func TestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/categories", nil))

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, logs.String(), "path=/admin/categories")
	assert.Contains(t, logs.String(), "status=202")
}
