// Package detail is the state machine behind the product detail view: a
// read-only mode and an edit mode whose form is saved through an Updater.
package detail

import (
	"context"
	"errors"

	"github.com/storefront/catalog/engine/domain"
)

// Mode is the current mode of the view.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// ErrNotEditing is returned for edit operations outside edit mode.
var ErrNotEditing = errors.New("detail: not in edit mode")

// Updater persists a patch and returns the merged product.
type Updater interface {
	Update(ctx context.Context, id int, p domain.Patch) (domain.Product, error)
}

// View is one open product. Its state is discarded when the view is closed.
type View struct {
	product domain.Product
	form    domain.EditForm
	mode    Mode
}

// Open shows p in viewing mode with the edit form pre-filled.
func Open(p domain.Product) *View {
	return &View{product: p.Clone(), form: domain.EditFormFor(p), mode: Viewing}
}

func (v *View) Mode() Mode              { return v.mode }
func (v *View) Product() domain.Product { return v.product.Clone() }
func (v *View) Form() domain.EditForm   { return v.form }

// StartEdit switches to edit mode. The form keeps whatever it holds.
func (v *View) StartEdit() {
	v.mode = Editing
}

// SetField changes one form input while editing.
func (v *View) SetField(name, value string) error {
	if v.mode != Editing {
		return ErrNotEditing
	}
	return v.form.Set(name, value)
}

// Cancel leaves edit mode and resets the form to the product.
func (v *View) Cancel() {
	v.mode = Viewing
	v.form = domain.EditFormFor(v.product)
}

// Save validates the form and sends it through u. On success the view shows
// the merged product in viewing mode. On any failure it stays in edit mode
// with the input untouched.
func (v *View) Save(ctx context.Context, u Updater) error {
	if v.mode != Editing {
		return ErrNotEditing
	}
	patch, err := v.form.Patch()
	if err != nil {
		return err
	}
	updated, err := u.Update(ctx, v.product.ID, patch)
	if err != nil {
		return err
	}
	v.product = updated.Clone()
	v.form = domain.EditFormFor(updated)
	v.mode = Viewing
	return nil
}
