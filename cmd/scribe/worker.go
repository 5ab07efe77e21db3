// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nickandperla.net/scribescript/internal/schedule"
)

func newWorkerCmd(a *app) *cobra.Command {
	var (
		reload time.Duration
		once   bool
	)
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Fire scheduled events as they come due",
		Long: `worker loads pending events from the store and fires them when due,
committing each character's mutations. With --reload it also picks up
events written by other processes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := &worker{a: a}
			if err := w.load(); err != nil {
				return err
			}
			poller := schedule.NewPoller(a.queue, w.handle,
				schedule.WithInterval(a.cfg.PollInterval),
				schedule.WithLogger(a.logger),
			)
			if once {
				return poller.Poll(cmd.Context())
			}
			return w.run(cmd.Context(), poller, reload)
		},
	}
	cmd.Flags().DurationVar(&a.cfg.PollInterval, "interval", a.cfg.PollInterval, "Poll interval")
	cmd.Flags().DurationVar(&reload, "reload", 0, "Reload pending events from the store at this interval (0 disables)")
	cmd.Flags().BoolVar(&once, "once", false, "Fire what is due now and exit")
	return cmd
}

// worker serializes queue reloads with event firing so a reload never
// re-adds an event that is being committed.
type worker struct {
	a  *app
	mu sync.Mutex
}

func (w *worker) load() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.a.engine.LoadQueue(); err != nil {
		return err
	}
	w.a.logger.Info("pending events loaded", zap.Int("count", w.a.queue.Len()))
	return nil
}

func (w *worker) handle(ctx context.Context, now time.Time, due []schedule.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.a.engine.DueHandler()(ctx, now, due)
}

func (w *worker) run(ctx context.Context, poller *schedule.Poller, reload time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w.a.logger.Info("worker started", zap.Duration("interval", w.a.cfg.PollInterval))
		return poller.Run(gctx)
	})

	if reload > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(reload)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := w.load(); err != nil {
						return fmt.Errorf("reload pending events: %w", err)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	w.a.logger.Info("worker stopped")
	return nil
}
