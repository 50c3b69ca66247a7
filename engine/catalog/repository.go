package catalog

import (
	"context"
	"slices"
	"sync"

	"github.com/storefront/catalog/engine/domain"
)

// Lister is the read side of the remote store.
type Lister interface {
	List(ctx context.Context) ([]domain.Product, error)
}

// Repository is the in-memory copy of the product list, kept in source
// order. Products come in through Load, Insert and UpdateByID only; nothing
// is ever removed. Every read returns copies.
type Repository struct {
	mu       sync.RWMutex
	products []domain.Product
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{products: []domain.Product{}}
}

// Load replaces the contents with the list from src. On error the previous
// contents are kept.
func (r *Repository) Load(ctx context.Context, src Lister) ([]domain.Product, error) {
	products, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	fresh := make([]domain.Product, len(products))
	for i, p := range products {
		fresh[i] = p.Clone()
	}

	r.mu.Lock()
	r.products = fresh
	r.mu.Unlock()
	return r.All(), nil
}

// Insert puts p at the front of the list.
func (r *Repository) Insert(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = slices.Insert(r.products, 0, p.Clone())
}

// UpdateByID merges patch into the first product with id. It reports false
// and changes nothing when no product has that id.
func (r *Repository) UpdateByID(id int, patch domain.Patch) (domain.Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.products, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return domain.Product{}, false
	}
	r.products[i] = patch.Apply(r.products[i])
	return r.products[i].Clone(), true
}

// FindByID returns the first product with id.
func (r *Repository) FindByID(id int) (domain.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.Product{}, false
}

// All returns a snapshot of every product in order.
func (r *Repository) All() []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Product, len(r.products))
	for i, p := range r.products {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of products.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}
