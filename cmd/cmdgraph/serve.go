package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/api"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/engine"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/metrics"
)

func buildServeCmd(a *app) *cobra.Command {
	var (
		addr            string
		reloadPerMinute int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the command graph, watch the command file and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.settings.Addr = addr
			}
			if cmd.Flags().Changed("reload-per-minute") {
				a.settings.ReloadPerMinute = reloadPerMinute
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().IntVar(&reloadPerMinute, "reload-per-minute", 0, "Reload endpoint limit (0 disables)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	s := a.settings

	// ── Load command file ─────────────────────────────────────────────────────
	loader, err := a.loadCommandSet()
	if err != nil {
		return err
	}

	// ── Engine and initial build ──────────────────────────────────────────────
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(ctx, argument.DefaultRegistry(), s.QueueDepth, slog.Default())
	defer eng.Shutdown()

	if _, err := eng.Rebuild(ctx, loader.Config()); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(set *config.CommandSet) {
		if err := config.Validate(set); err != nil {
			metrics.Reloads.WithLabelValues("watch", "invalid").Inc()
			slog.Warn("hot-reload skipped: command file invalid", "err", err)
			return
		}
		res, err := eng.Rebuild(ctx, set)
		if err != nil {
			metrics.Reloads.WithLabelValues("watch", "error").Inc()
			slog.Warn("hot-reload skipped: build failed", "err", err)
			return
		}
		metrics.Reloads.WithLabelValues("watch", "ok").Inc()
		slog.Info("command graph hot-reloaded", "changed", res.Changed, "fingerprint", res.Snapshot.Fingerprint)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("command file watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      api.New(eng, loader, s.ReloadPerMinute),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("server starting", "addr", s.Addr, "config", loader.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("shutting down")
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutCancel()
		return srv.Shutdown(shutCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}
	slog.Info("goodbye")
	return nil
}
