package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/config"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/usecase"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/automation/remote"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/catalog"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/notify"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/notify/ses"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/queue/nats"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/repository/memory"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/repository/postgres"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/resilience"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Catalog  *domain.Catalog
	Calendar *domain.BusinessCalendar

	Proxies ports.ProxyStore
	Queue   *nats.Queue // nil when NATS_URL is empty
	Metrics *metrics.FilingMetrics

	Resolver        *usecase.JurisdictionResolver
	Ledger          *usecase.CreditLedger
	Filings         *usecase.FilingUseCase
	Reconciliations *usecase.ReconciliationUseCase

	closeFn func()
}

// stores is what both store drivers provide.
type stores struct {
	filings         ports.FilingRepository
	uow             ports.UnitOfWork
	accounts        ports.AccountStore
	proxies         ports.ProxyStore
	reconciliations ports.ReconciliationStore
	close           func()
}

func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := catalog.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load venue catalog: %w", err)
	}
	calendar, err := catalog.LoadCalendar(cfg.HolidaysPath)
	if err != nil {
		return nil, fmt.Errorf("load holiday calendar: %w", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	closers := []func(){st.close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	filingMetrics := metrics.NewFilingMetrics(service)
	opts := []usecase.FilingOption{
		usecase.WithLogger(logger),
		usecase.WithObserver(filingMetrics),
		usecase.WithAutomationTimeout(cfg.AutomationTimeout),
	}

	var queue *nats.Queue
	var notifiers notify.Fanout
	if cfg.NATSURL != "" {
		natsExecutor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Concurrency:        cfg.WorkerConcurrency,
			ResilienceExecutor: natsExecutor,
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init filing queue: %w", err)
		}
		closers = append(closers, queue.Close)
		opts = append(opts, usecase.WithFilingQueue(queue))
		notifiers = append(notifiers, nats.NewEventNotifier(queue.Conn(), cfg.NATSEventsSubject, natsExecutor))
	}

	if cfg.NotifyEmailEnabled {
		mailer, err := ses.New(ctx, cfg.AWSRegion, cfg.NotifyEmailFrom, resilience.NewExecutor(resilience.DefaultConfig(), logger))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init email notifier: %w", err)
		}
		notifiers = append(notifiers, mailer)
	}
	if len(notifiers) > 0 {
		opts = append(opts, usecase.WithNotifier(notifiers))
	}

	automation := remote.New(cfg.AutomationURL, cfg.AutomationToken, resilience.NewExecutor(automationResilience(cfg), logger))
	resolver := usecase.NewJurisdictionResolver(cat)
	filings := usecase.NewFilingUseCase(
		st.filings,
		st.uow,
		resolver,
		st.accounts,
		st.proxies,
		automation,
		calendar,
		opts...,
	)

	logger.Info("bootstrap_ready",
		"store_driver", cfg.StoreDriver,
		"catalog_version", cat.Version,
		"regions", len(cat.RegionKeys()),
		"queue_enabled", queue != nil,
		"notifiers", len(notifiers),
	)

	return &App{
		Config:          cfg,
		Catalog:         cat,
		Calendar:        calendar,
		Proxies:         st.proxies,
		Queue:           queue,
		Metrics:         filingMetrics,
		Resolver:        resolver,
		Ledger:          usecase.NewCreditLedger(st.accounts),
		Filings:         filings,
		Reconciliations: usecase.NewReconciliationUseCase(st.reconciliations),
		closeFn:         closeAll,
	}, nil
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		store := memory.New()
		return stores{
			filings:         store,
			uow:             store,
			accounts:        store,
			proxies:         store,
			reconciliations: store,
			close:           func() {},
		}, nil
	case "postgres", "":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return stores{}, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("ensure schema: %w", err)
		}
		return stores{
			filings:         store.Filings,
			uow:             store,
			accounts:        store.Accounts,
			proxies:         store.Proxies,
			reconciliations: store.Reconciliations,
			close:           closeDB(db),
		}, nil
	default:
		return stores{}, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

// automationResilience never retries: a portal submission may already have
// been written on the other side.
func automationResilience(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.Retry = resilience.SingleAttempt()
	rc.Breaker.Enabled = cfg.AutomationBreakerEnabled
	if cfg.AutomationBreakerMinRequests > 0 {
		rc.Breaker.MinRequests = uint32(cfg.AutomationBreakerMinRequests)
	}
	if cfg.AutomationBreakerFailureRatio > 0 {
		rc.Breaker.FailureRatio = cfg.AutomationBreakerFailureRatio
	}
	if cfg.AutomationBreakerOpenTimeout > 0 {
		rc.Breaker.OpenTimeout = cfg.AutomationBreakerOpenTimeout
	}
	return rc
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
