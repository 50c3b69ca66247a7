// Package domain defines the product catalog types, the write payloads sent to
// the remote store and the validation gate every write passes through.
package domain

// Category groups products. Only id and name are used by the catalog.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog record as served by the remote store. Identity is ID,
// which the server assigns on creation.
type Product struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Price       *float64  `json:"price,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Images      []string  `json:"images,omitempty"`
}

// PriceOrZero returns the price, treating a missing price as 0.
func (p Product) PriceOrZero() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// CategoryName returns the category name or "" when the product has none.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// PrimaryImage returns the first image URL, if any.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Clone returns a deep copy so callers never share pointers or slices with
// the repository.
func (p Product) Clone() Product {
	out := p
	if p.Price != nil {
		v := *p.Price
		out.Price = &v
	}
	if p.Category != nil {
		c := *p.Category
		out.Category = &c
	}
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	return out
}

// Draft is the body of a create request.
type Draft struct {
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	CategoryID  int      `json:"categoryId"`
	Images      []string `json:"images"`
}

// Patch is the body of an update request. Nil fields are left untouched.
type Patch struct {
	Title       *string  `json:"title,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description *string  `json:"description,omitempty"`
	CategoryID  *int     `json:"categoryId,omitempty"`

	// Category is the category resolved by the server for CategoryID. It is
	// not sent; Apply uses it to keep the category name after a merge.
	Category *Category `json:"-"`
}

// Empty reports whether the patch sets no field.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Price == nil && p.Description == nil && p.CategoryID == nil
}

// Apply merges the patch into dst and returns the result. dst is not modified.
func (p Patch) Apply(dst Product) Product {
	out := dst.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Price != nil {
		v := *p.Price
		out.Price = &v
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		switch {
		case p.Category != nil && p.Category.ID == id:
			c := *p.Category
			out.Category = &c
		case out.Category != nil && out.Category.ID == id:
			// unchanged
		default:
			out.Category = &Category{ID: id}
		}
	}
	return out
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T { return &v }
