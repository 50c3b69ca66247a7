// Package catalog holds the in-memory product list and the operations that
// read and change it: load, the view pipeline, create, update and export.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/engine/events"
	"github.com/storefront/catalog/engine/export"
	"github.com/storefront/catalog/engine/view"
	"github.com/storefront/catalog/pkg/fn"
	"github.com/storefront/catalog/pkg/metrics"
)

// Store is the remote product store.
type Store interface {
	Lister
	Get(ctx context.Context, id int) (domain.Product, error)
	Create(ctx context.Context, d domain.Draft) (domain.Product, error)
	Update(ctx context.Context, id int, p domain.Patch) (domain.Product, error)
}

// Deps holds the collaborators of a Service. Only Store is required.
type Deps struct {
	Store   Store
	Events  events.Publisher
	Metrics *metrics.Registry
	Logger  *slog.Logger
}

// Service is the catalog as seen by the interaction surfaces.
type Service struct {
	store  Store
	repo   *Repository
	events events.Publisher
	loaded *metrics.Gauge
	log    *slog.Logger

	mu      sync.RWMutex
	loadErr error
	ready   bool
}

// NewService wires a Service around an empty repository.
func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		store:  d.Store,
		repo:   NewRepository(),
		events: d.Events,
		loaded: d.Metrics.Gauge("catalog_products_loaded", "Products held in memory."),
		log:    d.Logger.With("component", "catalog"),
	}
}

// Repository exposes the underlying product list.
func (s *Service) Repository() *Repository { return s.repo }

// Load fetches the product list. A failure before the first successful load
// is remembered: Ready returns it and reads fail with ErrNotLoaded. A failed
// reload keeps the products already held.
func (s *Service) Load(ctx context.Context) error {
	products, err := s.repo.Load(ctx, s.store)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loadErr = err
		s.log.Error("product load failed", "err", err)
		return err
	}
	s.loadErr, s.ready = nil, true
	s.loaded.Set(int64(len(products)))
	s.log.Info("products loaded", "count", len(products))
	return nil
}

// Ready returns nil once products are loaded, otherwise ErrNotLoaded
// wrapping the load failure.
func (s *Service) Ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.ready:
		return nil
	case s.loadErr != nil:
		return fmt.Errorf("%w: %w", domain.ErrNotLoaded, s.loadErr)
	default:
		return domain.ErrNotLoaded
	}
}

// View runs filter, sort and paginate for state.
func (s *Service) View(ctx context.Context, state view.State) (view.Page, error) {
	if err := s.Ready(); err != nil {
		return view.Page{}, err
	}
	return viewPipeline(state)(ctx, s.repo.All()).Unwrap()
}

func viewPipeline(state view.State) fn.Stage[[]domain.Product, view.Page] {
	filter := fn.TracedStage("catalog.filter", fn.MapStage(func(items []domain.Product) []domain.Product {
		return view.Filter(items, state.Search)
	}))
	sort := fn.TracedStage("catalog.sort", fn.MapStage(func(items []domain.Product) []domain.Product {
		return view.Sort(items, state.Sort)
	}))
	paginate := fn.TracedStage("catalog.paginate", fn.MapStage(func(items []domain.Product) view.Page {
		return view.Paginate(items, state.Page, state.PageSize)
	}))
	return fn.Then(fn.Pipeline(filter, sort), paginate)
}

// Visible returns every product matching state in display order.
func (s *Service) Visible(state view.State) ([]domain.Product, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	return view.Visible(s.repo.All(), state), nil
}

// Find returns a product from the local list.
func (s *Service) Find(id int) (domain.Product, error) {
	if err := s.Ready(); err != nil {
		return domain.Product{}, err
	}
	p, ok := s.repo.FindByID(id)
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// Fetch reads a product straight from the remote store.
func (s *Service) Fetch(ctx context.Context, id int) (domain.Product, error) {
	return s.store.Get(ctx, id)
}

// Create validates d, stores it remotely and puts the stored product at the
// front of the list. Nothing changes locally when any step fails. Writes are
// refused until the list has loaded.
func (s *Service) Create(ctx context.Context, d domain.Draft) (domain.Product, error) {
	if err := s.Ready(); err != nil {
		return domain.Product{}, err
	}
	create := fn.Then(fn.Check(domain.ValidateDraft), fn.TracedStage("catalog.create", fn.Call(s.store.Create)))
	created, err := create(ctx, d).Unwrap()
	if err != nil {
		s.log.Warn("create failed", "title", d.Title, "err", err)
		return domain.Product{}, err
	}

	s.repo.Insert(created)
	s.loaded.Inc()
	s.log.Info("product created", "id", created.ID)
	s.publish(ctx, events.New(events.Created, created))
	return created, nil
}

// Update validates p, sends it to the remote store and merges the provided
// fields into the local copy. The category returned by the server replaces
// the local one so its name stays current.
func (s *Service) Update(ctx context.Context, id int, p domain.Patch) (domain.Product, error) {
	if err := s.Ready(); err != nil {
		return domain.Product{}, err
	}
	if err := domain.ValidatePatch(p); err != nil {
		return domain.Product{}, err
	}
	send := fn.Call(func(ctx context.Context, p domain.Patch) (domain.Product, error) {
		return s.store.Update(ctx, id, p)
	})
	stored, err := fn.TracedStage("catalog.update", send)(ctx, p).Unwrap()
	if err != nil {
		s.log.Warn("update failed", "id", id, "err", err)
		return domain.Product{}, err
	}

	if p.CategoryID != nil && stored.Category != nil {
		c := *stored.Category
		p.Category = &c
	}
	merged, ok := s.repo.UpdateByID(id, p)
	if !ok {
		// The server accepted a product this list never held.
		s.log.Warn("updated product not in local list", "id", id)
		merged = stored
	}
	s.log.Info("product updated", "id", id)
	s.publish(ctx, events.New(events.Updated, merged))
	return merged, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("event publish failed", "kind", e.Kind, "product_id", e.Product.ID, "err", err)
	}
}

// Export writes the products matching state as CSV.
func (s *Service) Export(w io.Writer, state view.State) (int, error) {
	items, err := s.Visible(state)
	if err != nil {
		return 0, err
	}
	if err := export.WriteCSV(w, items); err != nil {
		if !errors.Is(err, export.ErrNothingToExport) {
			s.log.Error("export failed", "err", err)
		}
		return 0, err
	}
	return len(items), nil
}
