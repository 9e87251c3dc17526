package main

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/demo"
	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/snapshot"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and inspect rendered snapshots",
		Long: `Work with the snapshot store configured under snapshot: in the
config file (file, bolt or s3).

Examples:
  reconciler snapshot capture home
  reconciler snapshot list
  reconciler snapshot get home`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored snapshot keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), func(ctx context.Context, store snapshot.Store) error {
					keys, err := store.List(ctx)
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Println(k)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a stored snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), func(ctx context.Context, store snapshot.Store) error {
					snap, err := store.Get(ctx, args[0])
					if stderrors.Is(err, snapshot.ErrNotFound) {
						return errors.New("S001").WithDetail("No snapshot named " + args[0]).Wrap(err)
					}
					if err != nil {
						return err
					}
					info("key=%s epoch=%d nodes=%d taken=%s", snap.Key, snap.Epoch, snap.Nodes, snap.Taken.Format("2006-01-02 15:04:05"))
					fmt.Println(snap.HTML)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "capture <key>",
			Short: "Render the demo app and store it under key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), func(ctx context.Context, store snapshot.Store) error {
					snap, err := captureDemo(args[0])
					if err != nil {
						return err
					}
					if err := store.Put(ctx, snap); err != nil {
						return err
					}
					success("stored %s (%d nodes, epoch %d)", snap.Key, snap.Nodes, snap.Epoch)
					return nil
				})
			},
		},
	)

	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, fn func(context.Context, snapshot.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := snapshot.Open(cfg.SnapshotConfig())
	if err != nil {
		return errors.New("S002").WithDetail(err.Error()).Wrap(err)
	}
	defer store.Close()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, store)
}

// captureDemo mounts the demo app on an in-memory host and snapshots it.
func captureDemo(key string) (*snapshot.Snapshot, error) {
	m := host.NewMemory()
	container := m.NewContainer("main")
	e := engine.New(m, sched.NewManual())
	if err := e.Mount(container, demo.App()); err != nil {
		return nil, err
	}
	if err := e.Flush(); err != nil {
		return nil, err
	}
	return snapshot.Capture(key, e.Epoch(), container)
}
