package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/bootstrap"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/config"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker", logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil {
		logger.Error("worker_requires_nats", "hint", "set NATS_URL")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		app.Filings.SweepStale(gctx, cfg.RecoveryInterval, cfg.RecoveryStaleAfter)
		return nil
	})
	g.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", cfg.WorkerConcurrency)
		return app.Queue.SubscribeFilingRequested(gctx, func(handlerCtx context.Context, filingID string) error {
			return runFiling(handlerCtx, app, logger, filingID)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_stopped", "error", err)
	}
	app.Filings.WaitNotifications()
}

func runFiling(ctx context.Context, app *bootstrap.App, logger *slog.Logger, filingID string) error {
	app.Metrics.StartRun()
	defer app.Metrics.FinishRun()

	if filing, err := app.Filings.GetByID(ctx, filingID); err == nil {
		app.Metrics.ObserveDispatchLag(time.Since(filing.UpdatedAt))
	}

	filing, err := app.Filings.RunAutomated(ctx, filingID)
	switch {
	case err == nil:
		return nil
	case filing != nil:
		// terminal error state; the outcome lives on the request, redelivery would not help
		return nil
	case domain.IsKind(err, domain.ErrInsufficientCredit),
		domain.IsKind(err, domain.ErrInvalidTransition),
		domain.IsKind(err, domain.ErrFilingNotFound):
		logger.Warn("filing_run_skipped", "filing_id", filingID, "error_code", domain.ErrorCode(err), "error", err)
		return nil
	default:
		return err
	}
}
