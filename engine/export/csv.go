// Package export writes product lists as CSV files that open cleanly in
// spreadsheet software.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/pkg/fn"
)

// ErrNothingToExport is returned for an empty product list.
var ErrNothingToExport = errors.New("no products to export")

// BOM marks the file as UTF-8 for spreadsheet software.
const BOM = "\uFEFF"

// Header is the first row of every export.
var Header = []string{"ID", "Title", "Price", "Category", "Description"}

const (
	missing       = "N/A"
	noDescription = "No description"
)

// Filename returns the download name for an export made at t.
func Filename(t time.Time) string {
	return "products_" + t.UTC().Format(time.DateOnly) + ".csv"
}

// WriteCSV writes the BOM, the header and one row per product to w.
// Title and description are always quoted. Lines end with "\n".
func WriteCSV(w io.Writer, products []domain.Product) error {
	if len(products) == 0 {
		return ErrNothingToExport
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(BOM)
	bw.WriteString(strings.Join(fn.Map(Header, field), ",") + "\n")
	for _, line := range fn.Map(products, row) {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: write csv: %w", err)
	}
	return nil
}

func row(p domain.Product) string {
	price := missing
	if p.Price != nil {
		price = strconv.FormatFloat(*p.Price, 'f', -1, 64)
	}
	category := missing
	if name := p.CategoryName(); name != "" {
		category = name
	}
	desc := p.Description
	if desc == "" {
		desc = noDescription
	}
	return strings.Join([]string{
		field(strconv.Itoa(p.ID)),
		quoted(p.Title),
		field(price),
		field(category),
		quoted(desc),
	}, ",")
}

// field quotes s only when it holds a delimiter, quote or line break.
func field(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quoted(s)
	}
	return s
}

func quoted(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
