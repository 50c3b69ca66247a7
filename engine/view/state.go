// Package view turns the full product list into the slice a user sees: a
// case-insensitive title filter, an optional stable sort and a page window.
package view

import (
	"strings"

	"github.com/storefront/catalog/engine/domain"
)

// SortKey selects the ordering of the visible list. The zero value keeps
// source order.
type SortKey string

const (
	SortNone      SortKey = ""
	SortTitleAsc  SortKey = "title-asc"
	SortTitleDesc SortKey = "title-desc"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
)

// ParseSortKey accepts the four sort keys plus "" and "none".
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(strings.ToLower(s))); k {
	case SortNone, SortTitleAsc, SortTitleDesc, SortPriceAsc, SortPriceDesc:
		return k, nil
	case "none":
		return SortNone, nil
	}
	return SortNone, domain.NewValidationError("sort", s, domain.ErrInvalidSort)
}

func (k SortKey) String() string {
	if k == SortNone {
		return "none"
	}
	return string(k)
}

// DefaultPageSize is used when a state is built with a non-positive size.
const DefaultPageSize = 10

// State is what the user has asked to see. Page is 1-based and clamped when
// the state is applied.
type State struct {
	Search   string  `json:"search"`
	Sort     SortKey `json:"sort"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// NewState returns the initial state: no search, no sort, first page.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize}
}

// WithSearch sets the search term and returns to the first page.
func (s State) WithSearch(term string) State {
	s.Search = term
	s.Page = 1
	return s
}

// WithSort sets the sort key and returns to the first page.
func (s State) WithSort(k SortKey) State {
	s.Sort = k
	s.Page = 1
	return s
}

// ToggleTitle switches to title-desc when sorted title-asc, otherwise to
// title-asc.
func (s State) ToggleTitle() State {
	if s.Sort == SortTitleAsc {
		return s.WithSort(SortTitleDesc)
	}
	return s.WithSort(SortTitleAsc)
}

// TogglePrice is ToggleTitle for price.
func (s State) TogglePrice() State {
	if s.Sort == SortPriceAsc {
		return s.WithSort(SortPriceDesc)
	}
	return s.WithSort(SortPriceAsc)
}

// WithPageSize changes the page size and returns to the first page.
func (s State) WithPageSize(n int) State {
	if n <= 0 {
		n = DefaultPageSize
	}
	s.PageSize = n
	s.Page = 1
	return s
}

// WithPage jumps to page n. Values below 1 become 1; the upper bound is
// enforced by Paginate.
func (s State) WithPage(n int) State {
	if n < 1 {
		n = 1
	}
	s.Page = n
	return s
}

// Next and Prev move one page. Callers should clamp against a Page first.
func (s State) Next() State { return s.WithPage(s.Page + 1) }
func (s State) Prev() State { return s.WithPage(s.Page - 1) }
