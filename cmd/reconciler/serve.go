package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/demo"
	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/middleware"
	"github.com/vango-dev/reconciler/pkg/remote"
	"github.com/vango-dev/reconciler/pkg/snapshot"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		noSnapshot bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo app over WebSocket",
		Long: `Serve the demo app. Each browser tab gets its own engine; commits
are streamed to it as mutation batches.

Routes:
  /                         page shell
  /metrics                  Prometheus metrics
  /sessions                 live sessions
  /sessions/{id}/snapshot   rendered tree of a session (POST saves it)
  /snapshots/{key}          stored snapshots

Examples:
  reconciler serve
  reconciler serve --addr=127.0.0.1:9000
  reconciler serve -c prod.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, noSnapshot)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from server.addr)")
	cmd.Flags().BoolVar(&noSnapshot, "no-snapshots", false, "Disable the snapshot store")

	return cmd
}

func runServe(addr string, noSnapshot bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	logger := newLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := engine.NewMetrics(
		engine.WithRegistry(reg),
		engine.WithNamespace(cfg.Metrics.Namespace),
	)

	opts := []remote.ServerOption{
		remote.WithServerLogger(logger),
		remote.WithRegistry(reg),
		remote.WithEngineMetrics(metrics),
		remote.WithHTTPMetrics(middleware.NewMetrics(
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		)),
	}
	if !noSnapshot {
		store, err := snapshot.Open(cfg.SnapshotConfig())
		if err != nil {
			return errors.New("S002").WithDetail(err.Error()).Wrap(err)
		}
		defer store.Close()
		opts = append(opts, remote.WithSnapshotStore(store))
		logger.Info("snapshot store ready", "store", cfg.Snapshot.Store)
	}

	srv := remote.NewServer(demo.App, cfg.ServerConfig(), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	success("Serving on %s", cfg.Server.Addr)
	info("WebSocket %s, metrics /metrics", cfg.Server.Path)
	return srv.Run(ctx)
}
