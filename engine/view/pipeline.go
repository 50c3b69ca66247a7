package view

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/pkg/fn"
)

// Page is one window of the filtered and sorted list.
type Page struct {
	Items       []domain.Product `json:"items"`
	Total       int              `json:"total"`
	TotalPages  int              `json:"totalPages"`
	Page        int              `json:"page"`
	PageSize    int              `json:"pageSize"`
	HasNext     bool             `json:"hasNext"`
	HasPrevious bool             `json:"hasPrevious"`
}

// Filter keeps products whose title contains term, ignoring case and
// surrounding whitespace. An empty term keeps everything.
func Filter(items []domain.Product, term string) []domain.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return slices.Clone(items)
	}
	return fn.Filter(items, func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Title), term)
	})
}

// Sort returns a sorted copy of items. Equal keys keep their relative order.
// Titles are compared with English collation; a missing price sorts as 0.
func Sort(items []domain.Product, key SortKey) []domain.Product {
	out := slices.Clone(items)
	switch key {
	case SortTitleAsc, SortTitleDesc:
		// A Collator holds scratch buffers, so each call gets its own.
		c := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			if key == SortTitleDesc {
				return c.CompareString(b.Title, a.Title)
			}
			return c.CompareString(a.Title, b.Title)
		})
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmp.Compare(a.PriceOrZero(), b.PriceOrZero())
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmp.Compare(b.PriceOrZero(), a.PriceOrZero())
		})
	}
	return out
}

// Paginate cuts page out of items. size must be positive; page is clamped
// into [1, TotalPages]. An empty list still has one (empty) page.
func Paginate(items []domain.Product, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := max(1, (total+size-1)/size)
	page = min(max(page, 1), pages)

	start := min((page-1)*size, total)
	end := min(start+size, total)
	window := make([]domain.Product, end-start)
	copy(window, items[start:end])

	return Page{
		Items:       window,
		Total:       total,
		TotalPages:  pages,
		Page:        page,
		PageSize:    size,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}
}

// Visible runs filter then sort. Export uses it to write every matching row.
func Visible(items []domain.Product, s State) []domain.Product {
	return Sort(Filter(items, s.Search), s.Sort)
}

// Apply runs the full pipeline for s.
func Apply(items []domain.Product, s State) Page {
	return Paginate(Visible(items, s), s.Page, s.PageSize)
}

// Clamp returns s with its page moved inside the bounds of p.
func (s State) Clamp(p Page) State {
	s.Page = p.Page
	return s
}
