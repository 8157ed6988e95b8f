package httpx

// Section identifiers, used as CurrentPage and to pick the content template.
const (
	PageProducts   = "products"
	PageCategories = "categories"
	PageUsers      = "users"
)

const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates" // relative to internal/http
)

const sessionCookieName = "session_id"

// ContentTemplateFor names the "<page>-content" template of a section.
// Unknown pages fall back to Produtos.
func ContentTemplateFor(currentPage string) string {
	switch currentPage {
	case PageCategories, PageUsers:
		return currentPage + "-content"
	default:
		return PageProducts + "-content"
	}
}
