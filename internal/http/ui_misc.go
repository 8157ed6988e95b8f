package httpx

import (
	"errors"
	"net/http"
	"net/url"
)

// SignedOut renders the signed-out page with a sign-in button.
func (h *UIHandlers) SignedOut(w http.ResponseWriter, r *http.Request) {
	redirect := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	loginURL := "/auth/login?redirect_uri=" + url.QueryEscape(redirect)
	if h.T == nil {
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.T.ExecuteTo(w, "signed-out-page", map[string]any{
		"Title":    "Sessão encerrada - DSCatalog Admin",
		"LoginURL": loginURL,
	}); err != nil {
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
	}
}

// NotFound renders an HTML 404 for browsers and a JSON error for API clients.
// It is safe on a nil receiver, which the router uses when templates failed to load.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("not found"),
		})
		return
	}

	isAuthenticated := GetSessionFromContext(r.Context()) != nil
	data := map[string]any{
		"Title":           "Página não encontrada - DSCatalog Admin",
		"Code":            "404",
		"Message":         "A página que você procura não existe.",
		"IsAuthenticated": isAuthenticated,
		"ShowLogin":       !isAuthenticated,
		"RedirectURI":     r.URL.RequestURI(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if h == nil || h.T == nil {
		_, _ = w.Write([]byte("Page not found"))
		return
	}
	if err := h.T.ExecuteTo(w, "error-layout", data); err != nil {
		h.logger().Error("failed to render not found page", "error", err)
	}
}
