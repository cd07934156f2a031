package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/resilience"
)

// Queue carries filing run requests from the API to the worker pool. The
// message body is the filing id.
type Queue struct {
	conn        *nats.Conn
	subject     string
	group       string
	concurrency int
	executor    *resilience.Executor
	logger      *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// Concurrency bounds how many filing runs a subscriber executes at once.
	Concurrency        int
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := connect(url, options, logger)
	if err != nil {
		return nil, err
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Queue{
		conn:        conn,
		subject:     subject,
		group:       "filing-workers",
		concurrency: concurrency,
		executor:    options.ResilienceExecutor,
		logger:      logger,
	}, nil
}

func connect(url string, options Options, logger *slog.Logger) (*nats.Conn, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("conciliation-filing"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

func (q *Queue) Conn() *nats.Conn {
	return q.conn
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishFilingRequested(ctx context.Context, filingID string) error {
	return publish(ctx, q.executor, "nats.publish.filing_requested", func() error {
		return q.conn.Publish(q.subject, []byte(filingID))
	})
}

// SubscribeFilingRequested blocks until ctx is done, then drains the
// subscription and waits for in-flight runs.
func (q *Queue) SubscribeFilingRequested(ctx context.Context, handler func(context.Context, string) error) error {
	slots := make(chan struct{}, q.concurrency)
	var inflight sync.WaitGroup

	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		filingID := string(msg.Data)

		// Blocking here applies back-pressure to this subscriber only; other
		// group members keep receiving.
		slots <- struct{}{}
		inflight.Add(1)
		go func() {
			defer func() {
				<-slots
				inflight.Done()
			}()
			// Runs must finish their commit even during shutdown.
			if err := handler(context.WithoutCancel(ctx), filingID); err != nil {
				q.logger.Warn("filing_run_handler_error", "filing_id", filingID, "error", err)
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	inflight.Wait()
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func publish(ctx context.Context, executor *resilience.Executor, operation string, send func() error) error {
	call := func(context.Context) error {
		if err := send(); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if executor != nil {
		err = executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return resilience.Temporary(operation, err, classifyNATSError)
}

func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrConnectionReconnecting):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.PermanentClassifier(err)
	}
}
