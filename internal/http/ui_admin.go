package httpx

import (
	"context"
	"net/http"

	"github.com/dscatalog/catalog-admin/internal/data"
	"github.com/dscatalog/catalog-admin/internal/domain/nav"
)

// Index sends the console root to the first admin section.
func (h *UIHandlers) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	http.Redirect(w, r, nav.PathProducts, http.StatusSeeOther)
}

// Products renders the Produtos section.
func (h *UIHandlers) Products(w http.ResponseWriter, r *http.Request) {
	h.Page(w, r, PageSpec{Meta: PageMeta{
		Title:       "Produtos - DSCatalog Admin",
		PageTitle:   "Produtos",
		CurrentPage: PageProducts,
	}})
}

// Categories renders the Categorias section.
func (h *UIHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	h.Page(w, r, PageSpec{Meta: PageMeta{
		Title:       "Categorias - DSCatalog Admin",
		PageTitle:   "Categorias",
		CurrentPage: PageCategories,
	}})
}

// Users renders the Usuarios section: stored role grants, one page at a time.
func (h *UIHandlers) Users(w http.ResponseWriter, r *http.Request) {
	var fetch ListFetcher[data.UserRoles]
	if h.Directory != nil {
		fetch = func(ctx context.Context, pg pageOpts) ([]data.UserRoles, error) {
			limit, offset := pg.LimitAndOffset()
			return h.Directory.ListUsers(ctx, limit, offset)
		}
	}
	HandleList(h, w, r, ListSpec[data.UserRoles]{
		Meta: PageMeta{
			Title:       "Usuarios - DSCatalog Admin",
			PageTitle:   "Usuarios",
			CurrentPage: PageUsers,
		},
		BasePath:     nav.PathUsers,
		ItemsKey:     "Users",
		Fetcher:      fetch,
		ErrorMessage: "Não foi possível carregar os usuários.",
	})
}
