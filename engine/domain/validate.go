package domain

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ValidateDraft checks a create payload before it is sent.
func ValidateDraft(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return NewValidationError("title", d.Title, ErrEmptyTitle)
	}
	if !validPrice(d.Price) {
		return NewValidationError("price", formatFloat(d.Price), ErrInvalidPrice)
	}
	if d.CategoryID <= 0 {
		return NewValidationError("categoryId", strconv.Itoa(d.CategoryID), ErrInvalidCategory)
	}
	for _, img := range d.Images {
		if !validImageURL(img) {
			return NewValidationError("images", img, ErrInvalidImage)
		}
	}
	return nil
}

// ValidatePatch checks an update payload. Only provided fields are checked,
// but at least one must be provided.
func ValidatePatch(p Patch) error {
	if p.Empty() {
		return NewValidationError("patch", "", ErrEmptyPatch)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewValidationError("title", *p.Title, ErrEmptyTitle)
	}
	if p.Price != nil && !validPrice(*p.Price) {
		return NewValidationError("price", formatFloat(*p.Price), ErrInvalidPrice)
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return NewValidationError("categoryId", strconv.Itoa(*p.CategoryID), ErrInvalidCategory)
	}
	return nil
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validImageURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
