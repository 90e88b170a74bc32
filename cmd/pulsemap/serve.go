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

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mr1hm/pulsemap/internal/api"
	"github.com/mr1hm/pulsemap/internal/auth"
	"github.com/mr1hm/pulsemap/internal/logging"
	"github.com/mr1hm/pulsemap/internal/query"
	"github.com/mr1hm/pulsemap/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the startup refresh and the periodic tasks",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			slog.Error("close error", "error", err)
		}
	}()
	cfg := a.cfg

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "version", version)

	authSvc := auth.NewService(a.store, cfg.Admin.SessionTTL, nil)
	if err := authSvc.Bootstrap(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	// Periodic work is queued as tasks; a tick that finds the queue full is dropped.
	pool := worker.NewWorkerPool(cfg.Worker.Count, cfg.Worker.BufferSize, nil)
	pool.Start(ctx)

	refreshTask := worker.Task{Name: "refresh", Run: func(ctx context.Context) error {
		_, err := a.manager.RefreshAll(ctx)
		return err
	}}
	sweepTask := worker.Task{Name: "sweep", Run: func(ctx context.Context) error {
		_, err := a.sweeper.Sweep(ctx)
		return err
	}}

	if !pool.Submit(ctx, refreshTask) {
		slog.Warn("startup refresh not queued")
	}

	sched := worker.NewScheduler(clockwork.NewRealClock(), pool)
	sched.OnDrop(func(task string) {
		a.metrics.TasksDropped.WithLabelValues(task).Inc()
	})
	sched.Every(cfg.Refresh.Interval, refreshTask)
	sched.Every(cfg.Retention.SweepInterval, sweepTask)
	sched.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware())
	router.Use(api.CORSMiddleware(cfg.Server.AdminOrigins))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	api.NewHandler(query.NewService(a.store, cfg.Refresh.Cap)).RegisterRoutes(router)
	api.NewAdminHandler(a.store, authSvc, a.manager, a.sweeper, cfg.Retention.CleanupMaxAge).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		slog.Error("server error", "error", err)
		stop()
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		slog.Error("server shutdown error", "error", serr)
	}
	sched.Wait()
	pool.Stop()

	slog.Info("shutdown complete")
	return err
}
