package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/engine/events"
	"github.com/storefront/catalog/engine/export"
	"github.com/storefront/catalog/engine/view"
)

type viewFlags struct {
	search string
	sort   string
	page   int
}

func (f *viewFlags) register(cmd *cobra.Command, withPage bool) {
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "Only show titles containing this text")
	cmd.Flags().StringVarP(&f.sort, "sort", "s", "", "title-asc, title-desc, price-asc or price-desc")
	if withPage {
		cmd.Flags().IntVarP(&f.page, "page", "p", 1, "Page to show")
	}
}

func (f *viewFlags) state(pageSize int) (view.State, error) {
	key, err := view.ParseSortKey(f.sort)
	if err != nil {
		return view.State{}, err
	}
	if f.page < 1 {
		f.page = 1
	}
	return view.NewState(pageSize).WithSearch(f.search).WithSort(key).WithPage(f.page), nil
}

func (a *app) listCmd() *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := vf.state(a.cfg.PageSize)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			page, err := svc.View(cmd.Context(), state)
			if err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), page, state.Clamp(page))
			return nil
		},
	}
	vf.register(cmd, true)
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var p domain.Product
			if remote {
				p, err = svc.Fetch(cmd.Context(), id)
			} else {
				p, err = svc.Find(id)
			}
			if err != nil {
				return err
			}
			renderProduct(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Read the product from the API instead of the loaded list")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		vf  viewFlags
		dir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the matching products to a dated CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := vf.state(a.cfg.PageSize)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dir") {
				dir = a.cfg.ExportDir
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			n, err := svc.Export(&buf, state)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, export.Filename(time.Now()))
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d products to %s\n", n, path)
			return nil
		},
	}
	vf.register(cmd, false)
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the file to (default $CATALOG_EXPORT_DIR)")
	return cmd
}

func (a *app) createCmd() *cobra.Command {
	var form domain.CreateForm
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := form.Draft()
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Create(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Product created successfully!")
			renderProduct(cmd.OutOrStdout(), p)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&form.Title, "title", "", "Product title")
	fl.StringVar(&form.Price, "price", "", "Price, e.g. 19.99")
	fl.StringVar(&form.Description, "description", "", "Description")
	fl.StringVar(&form.CategoryID, "category", "1", "Category id")
	fl.StringVar(&form.Image, "image", "", "Image URL")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("price")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var (
		title, description string
		price              float64
		category           int
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a product; unset flags are left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch domain.Patch
			fl := cmd.Flags()
			if fl.Changed("title") {
				patch.Title = &title
			}
			if fl.Changed("price") {
				patch.Price = &price
			}
			if fl.Changed("description") {
				patch.Description = &description
			}
			if fl.Changed("category") {
				patch.CategoryID = &category
			}
			if err := domain.ValidatePatch(patch); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Product updated successfully!")
			renderProduct(cmd.OutOrStdout(), p)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&title, "title", "", "New title")
	fl.Float64Var(&price, "price", 0, "New price")
	fl.StringVar(&description, "description", "", "New description")
	fl.IntVar(&category, "category", 0, "New category id")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print product changes published by other catalog processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nc, err := a.conn()
			if err != nil {
				return err
			}
			return watch(cmd.Context(), nc, a.cfg.EventSubject, cmd.OutOrStdout())
		},
	}
}

func watch(ctx context.Context, nc *nats.Conn, subject string, w io.Writer) error {
	lines := make(chan string, 16)
	sub, err := events.Subscribe(nc, subject, forward(ctx, lines))
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(w, "Watching %s.> (Ctrl-C to stop)\n", subject)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			fmt.Fprintln(w, line)
		}
	}
}

// forward formats each event onto lines. It gives up once ctx is done so a
// callback never outlives the watch loop that drains lines.
func forward(ctx context.Context, lines chan<- string) func(context.Context, events.Event) {
	return func(_ context.Context, e events.Event) {
		line := fmt.Sprintf("%s  %-7s  #%d %s (%s)",
			e.At.Local().Format(time.TimeOnly), e.Kind, e.Product.ID, e.Product.Title, formatPrice(e.Product.Price))
		select {
		case lines <- line:
		case <-ctx.Done():
		}
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}
