package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/service"
)

// AuthServiceInterface is the slice of service.AuthService the HTTP layer calls.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// Short-lived cookies that carry the login handshake across the IdP round trip.
const (
	cookieOAuthState = "oauth_state"
	cookieOAuthNonce = "oauth_nonce"
	cookiePostLogin  = "post_login_redirect"

	handshakeCookieTTL = 10 * time.Minute
)

// AuthHandlers serves /auth/*.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

// AuthStatusResponse is the body of GET /auth/status.
type AuthStatusResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *StatusUser `json:"user,omitempty"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
}

// StatusUser describes the signed-in principal.
type StatusUser struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
}

// LogoutResponse tells script callers where to navigate after logout.
type LogoutResponse struct {
	Status     string `json:"status"`
	RedirectTo string `json:"redirect_to"`
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login sends the browser to the IdP, remembering where to return.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	back := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	begun, err := h.Svc.BeginLogin(r.Context(), back)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", slog.Any("error", err))
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	for name, value := range map[string]string{
		cookieOAuthState: begun.State,
		cookieOAuthNonce: begun.Nonce,
		cookiePostLogin:  back,
	} {
		h.writeCookie(w, r, name, value, handshakeCookieTTL)
	}
	http.Redirect(w, r, begun.AuthURL, http.StatusFound)
}

// callbackProblem is a rejected callback: the API error code and its message.
type callbackProblem struct {
	code string
	msg  string
}

// checkCallback validates the callback query against the handshake cookies and returns the nonce.
func checkCallback(r *http.Request) (code, state, nonce string, problem *callbackProblem) {
	q := r.URL.Query()
	code, state = q.Get("code"), q.Get("state")
	switch {
	case code == "":
		return "", "", "", &callbackProblem{"missing_code", "authorization code is required"}
	case state == "":
		return "", "", "", &callbackProblem{"missing_state", "state parameter is required"}
	}
	if c, err := r.Cookie(cookieOAuthState); err != nil || c.Value != state {
		return "", "", "", &callbackProblem{"invalid_state", "invalid or missing state parameter"}
	}
	c, err := r.Cookie(cookieOAuthNonce)
	if err != nil {
		return "", "", "", &callbackProblem{"missing_nonce", "missing nonce parameter"}
	}
	return code, state, c.Value, nil
}

// Callback finishes login, sets the session cookie and returns to the remembered page.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code, state, nonce, problem := checkCallback(r)
	if problem != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: problem.code, Err: errors.New(problem.msg)})
		return
	}

	done, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{Code: code, State: state, Nonce: nonce})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "complete login failed", slog.Any("error", err))
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_completion_failed", Err: err})
		return
	}

	h.writeCookie(w, r, sessionCookieName, done.Session.ID, time.Until(done.Session.ExpiresAt))
	h.expireCookie(w, r, cookieOAuthState)
	h.expireCookie(w, r, cookieOAuthNonce)

	dest := "/"
	if c, cerr := r.Cookie(cookiePostLogin); cerr == nil {
		h.expireCookie(w, r, cookiePostLogin)
		dest = safeRedirectPath(c.Value)
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

// Logout drops the session and points the caller at the signed-out page.
// Script callers (JSON, htmx, XHR) get the target in the body instead of a redirect.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if lerr := h.Svc.Logout(r.Context(), c.Value); lerr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", slog.Any("error", lerr))
		}
	}
	h.expireCookie(w, r, sessionCookieName)

	back := r.FormValue("redirect_uri")
	if back == "" {
		back = r.URL.Query().Get("redirect_uri")
	}
	target := (&url.URL{
		Path:     "/auth/signed-out",
		RawQuery: url.Values{"redirect_uri": {safeRedirectPath(back)}}.Encode(),
	}).String()

	if wantsScriptResponse(r) {
		WriteJSON(w, http.StatusOK, LogoutResponse{Status: "success", RedirectTo: target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func wantsScriptResponse(r *http.Request) bool {
	return IsHTMX(r) ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// Status reports whether the session cookie names a live session. A stale cookie is cleared.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		WriteJSON(w, http.StatusOK, AuthStatusResponse{})
		return
	}
	sess, err := h.Svc.GetSession(r.Context(), c.Value)
	if err != nil {
		h.expireCookie(w, r, sessionCookieName)
		WriteJSON(w, http.StatusOK, AuthStatusResponse{})
		return
	}

	expires := sess.ExpiresAt
	WriteJSON(w, http.StatusOK, AuthStatusResponse{
		Authenticated: true,
		User: &StatusUser{
			ID:        sess.UserID,
			FirstName: sess.FirstName,
			LastName:  sess.LastName,
			Email:     sess.Email,
			Roles:     roleNames(sess.Roles),
		},
		ExpiresAt: &expires,
	})
}

func (h *AuthHandlers) baseCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"),
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandlers) writeCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	c := h.baseCookie(r, name)
	c.Value = value
	c.MaxAge = int(ttl.Seconds())
	http.SetCookie(w, c)
}

func (h *AuthHandlers) expireCookie(w http.ResponseWriter, r *http.Request, name string) {
	c := h.baseCookie(r, name)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	http.SetCookie(w, c)
}

func roleNames(roles []domainauth.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
