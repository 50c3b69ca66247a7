package export

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/storefront/catalog/engine/domain"
)

func TestWriteCSV(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Title: "Shirt", Price: domain.Ptr(10.5), Description: "Soft, warm", Category: &domain.Category{ID: 1, Name: "Clothes"}},
		{ID: 2, Title: `"quote"`},
	}
	var b strings.Builder
	if err := WriteCSV(&b, products); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	want := BOM +
		"ID,Title,Price,Category,Description\n" +
		`1,"Shirt",10.5,Clothes,"Soft, warm"` + "\n" +
		`2,"""quote""",N/A,N/A,"No description"` + "\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(out, "\r") {
		t.Fatal("lines must end with LF only")
	}
}

func TestWriteCSVReadsBack(t *testing.T) {
	products := []domain.Product{
		{ID: 7, Title: "Line\nbreak", Price: domain.Ptr(0.0), Description: `He said "hi"`, Category: &domain.Category{ID: 2, Name: "Odd, name"}},
	}
	var b strings.Builder
	if err := WriteCSV(&b, products); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(b.String(), BOM))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		Header,
		{"7", "Line\nbreak", "0", "Odd, name", `He said "hi"`},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var b strings.Builder
	if err := WriteCSV(&b, nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatal("nothing should be written")
	}
}

func TestFilename(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	if got := Filename(ts); got != "products_2024-03-10.csv" {
		t.Fatalf("got %q", got)
	}
}
