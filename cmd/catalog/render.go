package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/engine/session"
	"github.com/storefront/catalog/engine/view"
)

var printer = message.NewPrinter(language.English)

// formatPrice renders a price with thousands separators. Missing and zero
// prices show as N/A.
func formatPrice(p *float64) string {
	if p == nil || *p == 0 {
		return "N/A"
	}
	return printer.Sprintf("$%.2f", *p)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func renderPage(w io.Writer, page view.Page, state view.State) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY")
	for _, p := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, truncate(p.Title, 48), formatPrice(p.Price), orNA(p.CategoryName()))
	}
	tw.Flush()

	if page.Total == 0 {
		fmt.Fprintln(w, "No products found.")
	}
	footer := printer.Sprintf("Page %d of %d (%d products", page.Page, page.TotalPages, page.Total)
	if state.Search != "" {
		footer += fmt.Sprintf(", search %q", state.Search)
	}
	if state.Sort != view.SortNone {
		footer += ", sorted " + state.Sort.String()
	}
	fmt.Fprintln(w, footer+")")
}

func renderProduct(w io.Writer, p domain.Product) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", p.Title)
	fmt.Fprintf(tw, "Price:\t%s\n", formatPrice(p.Price))
	fmt.Fprintf(tw, "Category:\t%s\n", orNA(p.CategoryName()))
	desc := p.Description
	if desc == "" {
		desc = "No description available."
	}
	fmt.Fprintf(tw, "Description:\t%s\n", desc)
	if img := p.PrimaryImage(); img != "" {
		fmt.Fprintf(tw, "Image:\t%s\n", img)
	}
	if len(p.Images) > 1 {
		fmt.Fprintf(tw, "More images:\t%s\n", strings.Join(p.Images[1:], ", "))
	}
	tw.Flush()
}

func renderForm(w io.Writer, f domain.EditForm) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  title\t%s\n", f.Title)
	fmt.Fprintf(tw, "  price\t%s\n", f.Price)
	fmt.Fprintf(tw, "  description\t%s\n", f.Description)
	fmt.Fprintf(tw, "  categoryId\t%s\n", f.CategoryID)
	tw.Flush()
}

func renderSnapshot(w io.Writer, snap session.Snapshot) {
	if d := snap.Detail; d != nil {
		renderProduct(w, d.Product)
		if d.Mode == "editing" {
			fmt.Fprintln(w, "Editing (set <field> <value>, save, cancel):")
			renderForm(w, d.Form)
		}
	} else {
		renderPage(w, snap.Page, snap.State)
	}
	if snap.Message != "" {
		fmt.Fprintln(w, snap.Message)
	}
}
