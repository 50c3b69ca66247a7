package domain

import (
	"strconv"
	"strings"
)

// EditForm holds the raw text of the edit inputs for one product.
type EditForm struct {
	Title       string
	Price       string
	Description string
	CategoryID  string
}

// defaultCategoryID pre-fills the category input of products without one.
const defaultCategoryID = 1

// EditFormFor pre-fills an edit form from a product.
func EditFormFor(p Product) EditForm {
	catID := defaultCategoryID
	if p.Category != nil {
		catID = p.Category.ID
	}
	return EditForm{
		Title:       p.Title,
		Price:       formatFloat(p.PriceOrZero()),
		Description: p.Description,
		CategoryID:  strconv.Itoa(catID),
	}
}

// Patch converts the form into a validated full patch. The edit form always
// submits all four fields.
func (f EditForm) Patch() (Patch, error) {
	title := strings.TrimSpace(f.Title)
	price, err := parsePrice(f.Price)
	if err != nil {
		return Patch{}, err
	}
	catID, err := parseCategoryID(f.CategoryID)
	if err != nil {
		return Patch{}, err
	}
	desc := f.Description
	p := Patch{Title: &title, Price: &price, Description: &desc, CategoryID: &catID}
	if err := ValidatePatch(p); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Set updates one input by name. Names match the JSON field names.
func (f *EditForm) Set(field, value string) error {
	switch field {
	case "title":
		f.Title = value
	case "price":
		f.Price = value
	case "description":
		f.Description = value
	case "categoryId", "category":
		f.CategoryID = value
	default:
		return NewValidationError("field", field, ErrUnknownField)
	}
	return nil
}

// CreateForm holds the raw text of the create inputs.
type CreateForm struct {
	Title       string
	Price       string
	Description string
	CategoryID  string
	Image       string
}

// Draft converts the form into a validated create payload.
func (f CreateForm) Draft() (Draft, error) {
	price, err := parsePrice(f.Price)
	if err != nil {
		return Draft{}, err
	}
	catID, err := parseCategoryID(f.CategoryID)
	if err != nil {
		return Draft{}, err
	}
	d := Draft{
		Title:       strings.TrimSpace(f.Title),
		Price:       price,
		Description: strings.TrimSpace(f.Description),
		CategoryID:  catID,
		Images:      []string{},
	}
	if img := strings.TrimSpace(f.Image); img != "" {
		d.Images = append(d.Images, img)
	}
	if err := ValidateDraft(d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !validPrice(v) {
		return 0, NewValidationError("price", s, ErrInvalidPrice)
	}
	return v, nil
}

func parseCategoryID(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, NewValidationError("categoryId", s, ErrInvalidCategory)
	}
	return v, nil
}
