// Package main implements the catalog API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/catalog/engine/catalog"
	"github.com/storefront/catalog/engine/events"
	"github.com/storefront/catalog/engine/store"
	"github.com/storefront/catalog/pkg/config"
	"github.com/storefront/catalog/pkg/metrics"
	"github.com/storefront/catalog/pkg/mid"
	"github.com/storefront/catalog/pkg/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Remote store ---
	client, err := store.New(cfg.APIURL, store.Options{
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.RateBurst,
		Breaker: resilience.BreakerOpts{
			FailThreshold: cfg.BreakerThreshold,
			Timeout:       cfg.BreakerTimeout,
		},
		Metrics: reg,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// --- Change events (optional) ---
	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("catalog-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		publisher = events.NewNATS(nc, cfg.EventSubject, logger)
		logger.Info("publishing change events", "subject", cfg.EventSubject)
	}

	svc := catalog.NewService(catalog.Deps{
		Store:   client,
		Events:  publisher,
		Metrics: reg,
		Logger:  logger,
	})

	// A failed load is served as 503 until restart.
	loadCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	if err := svc.Load(loadCtx); err != nil {
		logger.Error("initial load failed, product routes will answer 503", "err", err)
	}
	cancel()

	api := &server{svc: svc, pageSize: cfg.PageSize, log: logger, now: time.Now}
	handler := mid.Chain(api.routes(reg), middleware(logger, reg, cfg.CORSOrigin)...)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api server starting", "port", cfg.Port, "store", client.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

// middleware is the API stack, outermost first. RequestID runs before
// Recover so a panic response still carries the id.
func middleware(logger *slog.Logger, reg *metrics.Registry, origin string) []mid.Middleware {
	return []mid.Middleware{
		mid.RequestID(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(reg, "catalog"),
		mid.CORS(origin),
		mid.OTel("catalog-api"),
	}
}
