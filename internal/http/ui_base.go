package httpx

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dscatalog/catalog-admin/internal/data"
	"github.com/dscatalog/catalog-admin/internal/http/ui/viewmodel"
)

const genericPageError = "Ocorreu um erro inesperado. Tente novamente."

// NavRenderObserver is told how many entries each rendered navbar showed.
type NavRenderObserver interface {
	ObserveNavRender(visible int)
}

// UserDirectory lists stored grants for the Usuarios page.
type UserDirectory interface {
	ListUsers(ctx context.Context, limit, offset int) ([]data.UserRoles, error)
}

// UIHandlers serves the HTML console.
type UIHandlers struct {
	T         *TemplateRenderer
	Directory UserDirectory // nil leaves the Usuarios table empty
	Metrics   NavRenderObserver
	IsDev     bool // show template errors in the page
	Logger    *slog.Logger
}

func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// PageMeta names a page: the <title>, the header text and the section key.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

// PageSpec is a page plus an optional loader that adds its own keys to the template data.
type PageSpec struct {
	Meta  PageMeta
	Fetch func(ctx context.Context, data map[string]any) error
}

func layoutFor(r *http.Request, meta PageMeta) viewmodel.Layout {
	l := viewmodel.Layout{
		Title:       meta.Title,
		PageTitle:   meta.PageTitle,
		CurrentPage: meta.CurrentPage,
		Nav:         NavBar(r),
	}
	if sess := GetSessionFromContext(r.Context()); sess != nil {
		l.IsAuthenticated = true
		l.User = &viewmodel.User{
			Email: sess.Email,
			Name:  strings.TrimSpace(sess.FirstName + " " + sess.LastName),
			Roles: roleNames(sess.Roles),
		}
	}
	return l
}

// templateData flattens the layout into the map every page template receives.
func templateData(l viewmodel.Layout) map[string]any {
	m := map[string]any{
		"Title":           l.Title,
		"PageTitle":       l.PageTitle,
		"CurrentPage":     l.CurrentPage,
		"IsAuthenticated": l.IsAuthenticated,
		"Nav":             l.Nav,
	}
	if l.User != nil {
		m["User"] = l.User
	}
	return m
}

// Page renders spec. A failing Fetch still renders the page, with an error banner.
func (h *UIHandlers) Page(w http.ResponseWriter, r *http.Request, spec PageSpec) {
	l := layoutFor(r, spec.Meta)
	if h.Metrics != nil {
		h.Metrics.ObserveNavRender(len(l.Nav))
	}

	pd := templateData(l)
	if spec.Fetch != nil {
		if err := spec.Fetch(r.Context(), pd); err != nil {
			h.logger().ErrorContext(r.Context(), "page fetch failed",
				slog.String("page", spec.Meta.CurrentPage), slog.Any("error", err))
			pd["Error"] = true
			if _, set := pd["ErrorMessage"]; !set {
				pd["ErrorMessage"] = genericPageError
			}
		}
	}

	if WantsPartial(r) {
		h.writePartial(w, r, l, pd)
		return
	}
	if err := h.T.RenderFull(w, r, pd); err != nil {
		h.templateFailure(w, r, "full page", err)
	}
}

// writePartial answers an htmx navigation: the section content plus out-of-band
// swaps for the title, the header and the navbar, so the active link follows the page.
func (h *UIHandlers) writePartial(w http.ResponseWriter, r *http.Request, l viewmodel.Layout, pd map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "<title>%s</title>", template.HTMLEscapeString(l.Title))
	fmt.Fprintf(&b, `<h1 id="header-title" class="header-title" hx-swap-oob="outerHTML">%s</h1>`,
		template.HTMLEscapeString(l.PageTitle))

	if err := h.T.ExecuteTo(&b, "navbar", map[string]any{"Links": l.Nav, "OOB": true}); err != nil {
		h.templateFailure(w, r, "navbar", err)
		return
	}
	if err := h.T.ExecuteTo(&b, ContentTemplateFor(l.CurrentPage), pd); err != nil {
		h.templateFailure(w, r, "section content", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	SetHXTrigger(w, "nav:activate", map[string]string{"path": r.URL.Path})
	if _, err := w.Write([]byte(b.String())); err != nil {
		h.logger().ErrorContext(r.Context(), "write partial page", slog.Any("error", err))
	}
}

// templateFailure logs a render error and answers 500. Dev mode shows the error in the page.
func (h *UIHandlers) templateFailure(w http.ResponseWriter, r *http.Request, stage string, err error) {
	h.logger().ErrorContext(r.Context(), "template rendering failed",
		slog.String("stage", stage),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	if !h.IsDev {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintf(w,
		`<div class="template-error"><h2>Template Rendering Error</h2><p><strong>Stage:</strong> %s</p><p><strong>Path:</strong> %s</p><pre>%s</pre></div>`,
		template.HTMLEscapeString(stage), template.HTMLEscapeString(r.URL.Path), template.HTMLEscapeString(err.Error()))
}
