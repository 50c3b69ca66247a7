// Package session turns user actions into catalog state changes. A Session
// is what a surface drives: it holds the view state and the open detail
// view, applies one action at a time and hands back a snapshot to render.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/storefront/catalog/engine/detail"
	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/engine/export"
	"github.com/storefront/catalog/engine/view"
)

// Catalog is the part of catalog.Service a session needs.
type Catalog interface {
	View(ctx context.Context, s view.State) (view.Page, error)
	Find(id int) (domain.Product, error)
	Create(ctx context.Context, d domain.Draft) (domain.Product, error)
	Update(ctx context.Context, id int, p domain.Patch) (domain.Product, error)
	Export(w io.Writer, s view.State) (int, error)
}

// Snapshot is everything a surface needs to draw the current screen.
type Snapshot struct {
	State   view.State      `json:"state"`
	Page    view.Page       `json:"page"`
	Detail  *DetailSnapshot `json:"detail,omitempty"`
	Message string          `json:"message,omitempty"`
}

// DetailSnapshot describes the open detail view.
type DetailSnapshot struct {
	Mode    string          `json:"mode"`
	Product domain.Product  `json:"product"`
	Form    domain.EditForm `json:"form"`
}

// Session is not safe for concurrent use; one surface owns it.
type Session struct {
	cat    Catalog
	state  view.State
	page   view.Page
	detail *detail.View
	log    *slog.Logger
	now    func() time.Time
}

// New creates a session showing the first page with the given page size.
func New(cat Catalog, pageSize int, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{cat: cat, state: view.NewState(pageSize), log: log, now: time.Now}
}

// Action is a user intent. The set of actions is closed.
type Action interface {
	apply(ctx context.Context, s *Session) (string, error)
}

// Refresh recomputes the current page without changing anything.
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	if err := s.recompute(ctx, s.state); err != nil {
		return s.snapshot(""), err
	}
	return s.snapshot(""), nil
}

// Dispatch applies a. When it fails the session keeps its previous state and
// the error is returned next to the unchanged snapshot.
func (s *Session) Dispatch(ctx context.Context, a Action) (Snapshot, error) {
	msg, err := a.apply(ctx, s)
	if err != nil {
		s.log.Debug("action failed", "action", fmt.Sprintf("%T", a), "err", err)
		return s.snapshot(""), err
	}
	if err := s.recompute(ctx, s.state); err != nil {
		return s.snapshot(msg), err
	}
	return s.snapshot(msg), nil
}

func (s *Session) recompute(ctx context.Context, next view.State) error {
	page, err := s.cat.View(ctx, next)
	if err != nil {
		return err
	}
	s.page = page
	s.state = next.Clamp(page)
	return nil
}

func (s *Session) snapshot(msg string) Snapshot {
	snap := Snapshot{State: s.state, Page: s.page, Message: msg}
	if s.detail != nil {
		snap.Detail = &DetailSnapshot{
			Mode:    s.detail.Mode().String(),
			Product: s.detail.Product(),
			Form:    s.detail.Form(),
		}
	}
	return snap
}

// State returns the current view state.
func (s *Session) State() view.State { return s.state }

// --- view actions ---

// Search filters titles by Term.
type Search struct{ Term string }

func (a Search) apply(ctx context.Context, s *Session) (string, error) {
	return "", s.recompute(ctx, s.state.WithSearch(a.Term))
}

// SortBy orders the list by Key.
type SortBy struct{ Key view.SortKey }

func (a SortBy) apply(ctx context.Context, s *Session) (string, error) {
	return "", s.recompute(ctx, s.state.WithSort(a.Key))
}

// ToggleSort flips the title or price column between ascending and
// descending, the way a column header click does.
type ToggleSort struct{ Column string }

func (a ToggleSort) apply(ctx context.Context, s *Session) (string, error) {
	switch a.Column {
	case "title":
		return "", s.recompute(ctx, s.state.ToggleTitle())
	case "price":
		return "", s.recompute(ctx, s.state.TogglePrice())
	}
	return "", domain.NewValidationError("column", a.Column, domain.ErrInvalidSort)
}

// SetPageSize changes how many rows a page holds.
type SetPageSize struct{ Size int }

func (a SetPageSize) apply(ctx context.Context, s *Session) (string, error) {
	if a.Size <= 0 {
		return "", domain.NewValidationError("pageSize", fmt.Sprint(a.Size), domain.ErrInvalidPage)
	}
	return "", s.recompute(ctx, s.state.WithPageSize(a.Size))
}

// GoToPage jumps to Page, clamped to the last page.
type GoToPage struct{ Page int }

func (a GoToPage) apply(ctx context.Context, s *Session) (string, error) {
	if a.Page < 1 {
		return "", domain.NewValidationError("page", fmt.Sprint(a.Page), domain.ErrInvalidPage)
	}
	return "", s.recompute(ctx, s.state.WithPage(a.Page))
}

// NextPage moves forward one page; it does nothing on the last page.
type NextPage struct{}

func (NextPage) apply(ctx context.Context, s *Session) (string, error) {
	if !s.page.HasNext {
		return "", nil
	}
	return "", s.recompute(ctx, s.state.Next())
}

// PrevPage moves back one page; it does nothing on the first page.
type PrevPage struct{}

func (PrevPage) apply(ctx context.Context, s *Session) (string, error) {
	if !s.page.HasPrevious {
		return "", nil
	}
	return "", s.recompute(ctx, s.state.Prev())
}

// --- detail actions ---

// OpenDetail shows the product with ID.
type OpenDetail struct{ ID int }

func (a OpenDetail) apply(_ context.Context, s *Session) (string, error) {
	p, err := s.cat.Find(a.ID)
	if err != nil {
		return "", err
	}
	s.detail = detail.Open(p)
	return "", nil
}

// CloseDetail drops the open detail view and any unsaved edits.
type CloseDetail struct{}

func (CloseDetail) apply(_ context.Context, s *Session) (string, error) {
	s.detail = nil
	return "", nil
}

// StartEdit switches the open detail view to edit mode.
type StartEdit struct{}

func (StartEdit) apply(_ context.Context, s *Session) (string, error) {
	v, err := s.openDetail()
	if err != nil {
		return "", err
	}
	v.StartEdit()
	return "", nil
}

// EditField changes one input of the edit form.
type EditField struct{ Name, Value string }

func (a EditField) apply(_ context.Context, s *Session) (string, error) {
	v, err := s.openDetail()
	if err != nil {
		return "", err
	}
	return "", v.SetField(a.Name, a.Value)
}

// CancelEdit discards the edit form.
type CancelEdit struct{}

func (CancelEdit) apply(_ context.Context, s *Session) (string, error) {
	v, err := s.openDetail()
	if err != nil {
		return "", err
	}
	v.Cancel()
	return "", nil
}

// SaveEdit sends the edit form to the store.
type SaveEdit struct{}

func (SaveEdit) apply(ctx context.Context, s *Session) (string, error) {
	v, err := s.openDetail()
	if err != nil {
		return "", err
	}
	if err := v.Save(ctx, s.cat); err != nil {
		return "", err
	}
	return "Product updated successfully!", nil
}

// ErrNoDetail is returned by detail actions when no product is open.
var ErrNoDetail = fmt.Errorf("session: no product open: %w", domain.ErrNotFound)

func (s *Session) openDetail() (*detail.View, error) {
	if s.detail == nil {
		return nil, ErrNoDetail
	}
	return s.detail, nil
}

// --- write actions ---

// CreateProduct validates Form and creates the product.
type CreateProduct struct{ Form domain.CreateForm }

func (a CreateProduct) apply(ctx context.Context, s *Session) (string, error) {
	d, err := a.Form.Draft()
	if err != nil {
		return "", err
	}
	p, err := s.cat.Create(ctx, d)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Product %q created with id %d.", p.Title, p.ID), nil
}

// Export writes the filtered and sorted list, every page of it, to a dated
// CSV file in Dir.
type Export struct{ Dir string }

func (a Export) apply(_ context.Context, s *Session) (string, error) {
	var buf bytes.Buffer
	n, err := s.cat.Export(&buf, s.state)
	if err != nil {
		return "", err
	}
	dir := a.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, export.Filename(s.now()))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("session: write export: %w", err)
	}
	s.log.Info("export written", "path", path, "rows", n)
	return fmt.Sprintf("Exported %d products to %s.", n, path), nil
}
