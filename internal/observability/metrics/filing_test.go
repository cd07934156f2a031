package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func TestFilingMetricsCountsTerminalRuns(t *testing.T) {
	m := NewFilingMetrics("worker")

	m.AutomationFinished(domain.FilingCompleted, "", 40*time.Second)
	m.AutomationFinished(domain.FilingError, "automation_timeout", 240*time.Second)
	m.AutomationFinished(domain.FilingError, "automation_timeout", 240*time.Second)

	if got := testutil.ToFloat64(m.finishedTotal.WithLabelValues("worker", "completed", "")); got != 1 {
		t.Fatalf("completed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.finishedTotal.WithLabelValues("worker", "error", "automation_timeout")); got != 2 {
		t.Fatalf("timeouts = %v, want 2", got)
	}
}

func TestFilingMetricsPreflightAndReconciliation(t *testing.T) {
	m := NewFilingMetrics("api")

	m.PreflightRejected("insufficient_credits")
	m.PreflightRejected("")
	m.ReconciliationRaised()
	m.ProxyAcquired("JAL")

	if got := testutil.ToFloat64(m.preflightRejected.WithLabelValues("api", "insufficient_credits")); got != 1 {
		t.Fatalf("insufficient_credits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.preflightRejected.WithLabelValues("api", "unknown")); got != 1 {
		t.Fatalf("unknown = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.reconciliations.WithLabelValues("api")); got != 1 {
		t.Fatalf("reconciliations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.proxyAcquired.WithLabelValues("api", "JAL")); got != 1 {
		t.Fatalf("proxy JAL = %v, want 1", got)
	}
}

func TestFilingMetricsRunsInFlight(t *testing.T) {
	m := NewFilingMetrics("worker")
	m.StartRun()
	m.StartRun()
	m.FinishRun()
	m.ObserveDispatchLag(-time.Second)

	if got := testutil.ToFloat64(m.runsInFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.dispatchLag); got != 0 {
		t.Fatalf("dispatch lag series = %d, want 0", got)
	}
}
