package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"clientauth/internal/platform/config"
	"clientauth/internal/platform/httpserver"
	"clientauth/internal/platform/logger"
	"clientauth/internal/platform/metrics"
	httptransport "clientauth/internal/transport/http"
	"clientauth/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the public HTTP API, the metrics endpoint and the audit worker
until SIGINT or SIGTERM is received.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{
		Service: "clientauth",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
	})

	m := metrics.New(prometheus.DefaultRegisterer)
	d, err := buildDeps(ctx, cfg, m, log)
	if err != nil {
		errutil.LogError(ctx, log, "startup failed", err)
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Logger:     log,
		Auth:       d.service,
		Tokens:     d.tokens,
		Identities: d.identities,
		Observer:   m,
		Checks:     d.checks,
	})
	api := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting clientauth", "addr", cfg.Addr, "store", cfg.Database.Driver)
		return httpserver.Serve(gctx, api, nil, cfg.ShutdownTimeout)
	})
	if cfg.MetricsAddr != "" {
		metricsSrv := httpserver.New(cfg.MetricsAddr, metrics.Handler(prometheus.DefaultGatherer))
		g.Go(func() error {
			log.Info("starting metrics server", "addr", cfg.MetricsAddr)
			return httpserver.Serve(gctx, metricsSrv, nil, cfg.ShutdownTimeout)
		})
	}
	g.Go(func() error {
		return d.worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		errutil.LogError(ctx, log, "server stopped with error", err)
		return err
	}
	log.Info("shutdown complete", "audit_events_dropped", d.publisher.Dropped())
	return nil
}
