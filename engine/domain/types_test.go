package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestProductHelpers(t *testing.T) {
	var p Product
	if p.PriceOrZero() != 0 || p.CategoryName() != "" || p.PrimaryImage() != "" {
		t.Fatal("zero product should report empty helpers")
	}
	p = Product{Price: Ptr(12.5), Category: &Category{ID: 2, Name: "Shoes"}, Images: []string{"a", "b"}}
	if p.PriceOrZero() != 12.5 || p.CategoryName() != "Shoes" || p.PrimaryImage() != "a" {
		t.Fatalf("unexpected helpers: %+v", p)
	}
}

func TestProductClone(t *testing.T) {
	p := Product{ID: 1, Price: Ptr(1.0), Category: &Category{ID: 1, Name: "A"}, Images: []string{"x"}}
	c := p.Clone()
	*c.Price = 2
	c.Category.Name = "B"
	c.Images[0] = "y"
	if *p.Price != 1 || p.Category.Name != "A" || p.Images[0] != "x" {
		t.Fatalf("clone shares state with original: %+v", p)
	}
}

func TestProductDecodesRemoteShape(t *testing.T) {
	body := `{"id":4,"title":"Handmade Fresh Table","price":687,"description":"Andy shoes",
		"category":{"id":5,"name":"Others","image":"https://placeimg.com/640/480/any"},
		"images":["https://placeimg.com/640/480/any?r=0.59"]}`
	var p Product
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatal(err)
	}
	if p.ID != 4 || p.PriceOrZero() != 687 || p.CategoryName() != "Others" || len(p.Images) != 1 {
		t.Fatalf("unexpected decode: %+v", p)
	}
}

func TestPatchApply(t *testing.T) {
	orig := Product{ID: 2, Title: "Chair", Price: Ptr(40.0), Description: "oak", Category: &Category{ID: 3, Name: "Furniture"}}

	got := Patch{Price: Ptr(99.0)}.Apply(orig)
	if got.PriceOrZero() != 99 {
		t.Fatalf("expected price 99, got %v", got.PriceOrZero())
	}
	if got.Title != "Chair" || got.Description != "oak" || got.CategoryName() != "Furniture" {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if orig.PriceOrZero() != 40 {
		t.Fatal("apply mutated its input")
	}
}

func TestPatchApplyCategory(t *testing.T) {
	orig := Product{ID: 2, Category: &Category{ID: 3, Name: "Furniture"}}

	same := Patch{CategoryID: Ptr(3)}.Apply(orig)
	if same.CategoryName() != "Furniture" {
		t.Fatalf("same category should keep name, got %+v", same.Category)
	}

	bare := Patch{CategoryID: Ptr(4)}.Apply(orig)
	if bare.Category.ID != 4 || bare.Category.Name != "" {
		t.Fatalf("unresolved category should carry id only, got %+v", bare.Category)
	}

	resolved := Patch{CategoryID: Ptr(4), Category: &Category{ID: 4, Name: "Shoes"}}.Apply(orig)
	if resolved.CategoryName() != "Shoes" {
		t.Fatalf("resolved category should be adopted, got %+v", resolved.Category)
	}
}

func TestPatchJSONOmitsUnset(t *testing.T) {
	data, err := json.Marshal(Patch{Price: Ptr(5.0), Category: &Category{ID: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"price":5}` {
		t.Fatalf("unexpected body: %s", data)
	}
}

func TestEditForm(t *testing.T) {
	f := EditFormFor(Product{ID: 1, Title: "Lamp", Description: "warm"})
	if f.Price != "0" || f.CategoryID != "1" {
		t.Fatalf("unexpected defaults: %+v", f)
	}
	if err := f.Set("price", "12.75"); err != nil {
		t.Fatal(err)
	}
	p, err := f.Patch()
	if err != nil {
		t.Fatal(err)
	}
	if *p.Price != 12.75 || *p.Title != "Lamp" || *p.CategoryID != 1 || *p.Description != "warm" {
		t.Fatalf("unexpected patch: %+v", p)
	}

	f.Price = "twelve"
	if _, err := f.Patch(); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if err := f.Set("stock", "3"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestCreateForm(t *testing.T) {
	d, err := CreateForm{Title: "  Cap ", Price: "9", CategoryID: "2", Image: "https://img/cap.png"}.Draft()
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Cap" || d.Price != 9 || d.CategoryID != 2 || len(d.Images) != 1 {
		t.Fatalf("unexpected draft: %+v", d)
	}

	d, err = CreateForm{Title: "Cap", Price: "9", CategoryID: "2"}.Draft()
	if err != nil {
		t.Fatal(err)
	}
	if d.Images == nil || len(d.Images) != 0 {
		t.Fatalf("expected empty images slice, got %#v", d.Images)
	}

	if _, err := (CreateForm{Title: "Cap", Price: "9", CategoryID: "x"}).Draft(); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := (CreateForm{Price: "9", CategoryID: "1"}).Draft(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}
