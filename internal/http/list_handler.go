package httpx

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// pageOpts is the page a list view was asked for. Page is 1-based.
type pageOpts struct {
	Page     int
	PageSize int
}

// pageParams reads ?page= and ?page_size=. Invalid or out-of-range values fall back
// to page 1 and fallbackSize.
func pageParams(q url.Values, fallbackSize int) pageOpts {
	pg := pageOpts{Page: 1, PageSize: fallbackSize}
	if pg.PageSize <= 0 {
		pg.PageSize = defaultPageSize
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		pg.Page = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n > 0 && n <= maxPageSize {
		pg.PageSize = n
	}
	return pg
}

// LimitAndOffset asks for one row past the page so the caller can tell whether a next page exists.
func (p pageOpts) LimitAndOffset() (int, int) {
	return p.PageSize + 1, (p.Page - 1) * p.PageSize
}

// ListFetcher loads one page of T. It is handed the look-ahead limit via pg.LimitAndOffset.
type ListFetcher[T any] func(ctx context.Context, pg pageOpts) ([]T, error)

// ListSpec describes a paged list page.
type ListSpec[T any] struct {
	Meta     PageMeta
	BasePath string
	ItemsKey string
	PageSize int // defaultPageSize when zero
	// Fetcher nil renders the page with no rows, as does Available returning false.
	Fetcher   ListFetcher[T]
	Available func() bool
	// ErrorMessage replaces the generic banner when Fetcher fails.
	ErrorMessage string
}

// HandleList renders spec through Page, adding the items under ItemsKey and the
// pager keys (Page, HasPrev, HasNext, PrevURL, NextURL, StartIndex, EndIndex).
func HandleList[T any](h *UIHandlers, w http.ResponseWriter, r *http.Request, spec ListSpec[T]) {
	pg := pageParams(r.URL.Query(), spec.PageSize)

	h.Page(w, r, PageSpec{
		Meta: spec.Meta,
		Fetch: func(ctx context.Context, data map[string]any) error {
			data["Page"] = pg.Page
			if spec.Fetcher == nil || (spec.Available != nil && !spec.Available()) {
				return nil
			}

			items, err := spec.Fetcher(ctx, pg)
			if err != nil {
				if spec.ErrorMessage != "" {
					data["ErrorMessage"] = spec.ErrorMessage
				}
				return err
			}

			hasNext := len(items) > pg.PageSize
			if hasNext {
				items = items[:pg.PageSize]
			}
			data[spec.ItemsKey] = items
			pagerData(data, r.URL.Query(), spec.BasePath, pager{pg: pg, shown: len(items), hasNext: hasNext})
			return nil
		},
	})
}

type pager struct {
	pg      pageOpts
	shown   int
	hasNext bool
}

func pagerData(data map[string]any, q url.Values, basePath string, p pager) {
	if p.shown > 0 {
		offset := (p.pg.Page - 1) * p.pg.PageSize
		data["StartIndex"] = offset + 1
		data["EndIndex"] = offset + p.shown
	}
	if p.pg.Page > 1 {
		data["HasPrev"] = true
		data["PrevURL"] = pageURL(basePath, q, p.pg.Page-1)
	}
	if p.hasNext {
		data["HasNext"] = true
		data["NextURL"] = pageURL(basePath, q, p.pg.Page+1)
	}
}

// pageURL keeps the request's other query parameters, minus htmx ones and blanks.
func pageURL(basePath string, q url.Values, page int) string {
	out := url.Values{}
	for k, vs := range q {
		if strings.HasPrefix(k, "hx-") || strings.HasPrefix(k, "hx_") || k == "page" {
			continue
		}
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				out.Add(k, v)
			}
		}
	}
	out.Set("page", strconv.Itoa(page))
	return basePath + "?" + out.Encode()
}
