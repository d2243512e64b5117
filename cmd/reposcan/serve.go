package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	handler "github.com/Yuichizx/devops-tools-hub/internal/delivery/http"
	"github.com/Yuichizx/devops-tools-hub/internal/pool"
	"github.com/Yuichizx/devops-tools-hub/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scan worker pool",
	RunE:  doServe,
}

func doServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.logger

	log.Info("Starting scan service")

	poolCtx, cancelPool := context.WithCancel(ctx)
	defer cancelPool()
	wp := pool.NewWorkerPool(poolCtx, a.cfg.Worker.Concurrency, a.process, log.Named("pool"))

	router := handler.NewRouter(&handler.RouterDeps{
		SubmitUC:        usecase.NewSubmitScanUsecase(a.store, wp, log),
		GetTaskUC:       usecase.NewGetTaskUsecase(a.store, a.cfg.Worker.MaxLogBytes, log),
		Tasks:           a.store,
		Queue:           wp,
		Logger:          log,
		RateLimitPerMin: a.cfg.Server.RateLimit,
		MetricsEnabled:  a.cfg.Server.MetricsEnabled,
		ScreenshotDir:   a.cfg.Screenshot.Dir,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("API server listening", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		// Running scans finish; queued ones are dropped.
		cancelPool()
		wp.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("Scan service stopped with error", zap.Error(err))
		return err
	}
	log.Info("Scan service stopped")
	return nil
}
