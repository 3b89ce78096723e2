// Command flyqd is the FlyQ broker: it serves the TCP wire protocol and
// runs the background offset flush, metadata flush, and retention sweeps
// until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aboosoyeed/flyq/internal/config"
	"github.com/aboosoyeed/flyq/internal/engine"
	"github.com/aboosoyeed/flyq/internal/runtime"
	"github.com/aboosoyeed/flyq/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("flyqd: parse flags: %w", err)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("flyqd: %w", err)
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("flyqd: build logger: %w", err)
	}
	defer log.Sync()

	registry := prometheus.NewRegistry()
	metrics := engine.NewMetrics(registry)

	eng, err := engine.Load(cfg.BaseDir, cfg.SegmentMaxBytes, cfg.AutoCreateTopics, log, metrics)
	if err != nil {
		return fmt.Errorf("flyqd: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{
		Addr:   fmt.Sprintf(":%d", cfg.Port),
		Engine: eng,
		Log:    log,
	}
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runtime.Run(gctx, eng, runtime.Config{
			CleanupInterval: cfg.CleanupInterval,
			Retention:       cfg.Retention,
			RetentionBytes:  cfg.RetentionBytes,
		}, log)
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		errCh := make(chan error, 1)
		go func() { errCh <- metricsSrv.ListenAndServe() }()
		select {
		case <-gctx.Done():
			return metricsSrv.Close()
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("flyqd: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
