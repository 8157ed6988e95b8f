package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/http/ui/viewmodel"
	"github.com/dscatalog/catalog-admin/internal/ports"
)

// NavigationHandlers expose the admin navigation to API clients.
type NavigationHandlers struct {
	Sessions AuthServiceInterface // optional
	Tokens   ports.TokenVerifier  // optional
	Metrics  NavRenderObserver    // optional
	Logger   *slog.Logger
}

func (h *NavigationHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// NavigationResponse is the JSON body of GET /api/navigation.
type NavigationResponse struct {
	Items []viewmodel.NavLink `json:"items"`
	Roles []string            `json:"roles"`
}

// Get returns the entries visible to the caller.
// GET /api/navigation?path=<current path>.
// A bearer token wins over the session cookie; an invalid token is rejected rather than ignored.
func (h *NavigationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session, errCode, err := h.principal(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: errCode, Err: err})
		return
	}

	r = r.WithContext(SetSessionInContext(r.Context(), session))
	items := navBarFor(r, r.URL.Query().Get("path"))
	if h.Metrics != nil {
		h.Metrics.ObserveNavRender(len(items))
	}

	WriteJSON(w, http.StatusOK, NavigationResponse{Items: items, Roles: roleNames(session.Roles)})
}

// principal resolves the caller, returning an API error code on failure.
func (h *NavigationHandlers) principal(r *http.Request) (*domainauth.Session, string, error) {
	if raw, ok := bearerToken(r); ok {
		if h.Tokens == nil {
			return nil, "invalid_token", errors.New("bearer tokens are not accepted")
		}
		sess, err := h.Tokens.Verify(r.Context(), raw)
		if err != nil {
			h.logger().DebugContext(r.Context(), "bearer token rejected", "error", err)
			return nil, "invalid_token", errors.New("invalid token")
		}
		return &sess, "", nil
	}

	if session := sessionFromCookie(r, h.Sessions); session != nil {
		return session, "", nil
	}
	return nil, "authentication_required", errAuthRequired
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
