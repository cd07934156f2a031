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

	httpadapter "github.com/dapevi80/v0-project-from-scratch-sub001/internal/adapters/http"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/bootstrap"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/config"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/observability/logging"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "api", logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	router, err := httpadapter.NewRouter(cfg, httpadapter.Services{
		Resolver:        app.Resolver,
		Credits:         app.Ledger,
		Filings:         app.Filings,
		Reader:          app.Filings,
		Reconciliations: app.Reconciliations,
	}, httpMetrics)
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(httpMetrics.Gatherer(), app.Metrics.Gatherer()))
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.APIWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	// Synchronous runs happen in this process, so it sweeps its own leftovers too.
	go app.Filings.SweepStale(ctx, cfg.RecoveryInterval, cfg.RecoveryStaleAfter)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
	app.Filings.WaitNotifications()
}
