// Command catalog browses and edits the product catalog from a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/storefront/catalog/engine/catalog"
	"github.com/storefront/catalog/engine/events"
	"github.com/storefront/catalog/engine/store"
	"github.com/storefront/catalog/pkg/config"
	"github.com/storefront/catalog/pkg/metrics"
	"github.com/storefront/catalog/pkg/resilience"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	defer a.close()
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand shares. The service is built on first
// use so commands like watch never touch the remote store.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg config.Config
	log *slog.Logger
	nc  *nats.Conn
	svc *catalog.Service

	flags struct {
		apiURL   string
		natsURL  string
		pageSize int
		logLevel string
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and edit the product catalog",
		Long: `catalog talks to the remote product API.

Settings come from the environment (and a .env file); flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.apiURL, "api-url", "", "Products API base URL (default $CATALOG_API_URL)")
	pf.StringVar(&a.flags.natsURL, "nats-url", "", "NATS server for change events (default $NATS_URL)")
	pf.IntVar(&a.flags.pageSize, "page-size", 0, "Rows per page (default $CATALOG_PAGE_SIZE)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")

	root.AddCommand(
		a.listCmd(),
		a.showCmd(),
		a.exportCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.shellCmd(),
		a.watchCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("api-url") {
		cfg.APIURL = a.flags.apiURL
	}
	if fs.Changed("nats-url") {
		cfg.NATSURL = a.flags.natsURL
	}
	if fs.Changed("page-size") {
		cfg.PageSize = a.flags.pageSize
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.LogFormat = "text"
	a.cfg = cfg
	a.log = cfg.Logger(a.errOut)
	return nil
}

// service connects to the remote store and loads the product list.
func (a *app) service(ctx context.Context) (*catalog.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	client, err := store.New(a.cfg.APIURL, store.Options{
		Timeout:   a.cfg.RequestTimeout,
		RateLimit: a.cfg.RateLimit,
		Burst:     a.cfg.RateBurst,
		Breaker: resilience.BreakerOpts{
			FailThreshold: a.cfg.BreakerThreshold,
			Timeout:       a.cfg.BreakerTimeout,
		},
		Metrics: metrics.New(),
		Logger:  a.log,
	})
	if err != nil {
		return nil, err
	}

	var pub events.Publisher = events.Nop{}
	if a.cfg.NATSURL != "" {
		nc, err := a.conn()
		if err != nil {
			a.log.Warn("change events disabled", "err", err)
		} else {
			pub = events.NewNATS(nc, a.cfg.EventSubject, a.log)
		}
	}

	svc := catalog.NewService(catalog.Deps{Store: client, Events: pub, Logger: a.log})
	if err := svc.Load(ctx); err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	a.svc = svc
	return svc, nil
}

func (a *app) conn() (*nats.Conn, error) {
	if a.nc != nil {
		return a.nc, nil
	}
	if a.cfg.NATSURL == "" {
		return nil, fmt.Errorf("no NATS server configured (set NATS_URL or --nats-url)")
	}
	nc, err := nats.Connect(a.cfg.NATSURL, nats.Name("catalog-cli"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	a.nc = nc
	return nc, nil
}

func (a *app) close() {
	if a.nc != nil {
		a.nc.Drain()
	}
}
