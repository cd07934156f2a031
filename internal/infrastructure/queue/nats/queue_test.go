package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(nats.ErrNoServers); !class.Retryable || !class.RecordFailure {
		t.Fatalf("no servers must be retryable: %+v", class)
	}
	if class := classifyNATSError(context.DeadlineExceeded); class.Retryable || class.RecordFailure {
		t.Fatalf("deadline must not count: %+v", class)
	}
	if class := classifyNATSError(errors.New("invalid subject")); class.Retryable {
		t.Fatalf("unknown errors must not retry: %+v", class)
	}
}

func TestPublishWrapsRetryableErrorsAsTemporary(t *testing.T) {
	err := publish(context.Background(), nil, "nats.publish.filing_requested", func() error {
		return nats.ErrConnectionClosed
	})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestCompletedEventCarriesAppointment(t *testing.T) {
	appointment := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	event := newCompletedEvent(domain.FilingRequest{
		ID:              "filing-1",
		CaseRef:         "case-1",
		OfficialRef:     "JAL-2026-000123",
		AppointmentDate: &appointment,
		Jurisdiction:    domain.JurisdictionResult{Venue: domain.Venue{Name: "CCL Jalisco"}},
	})
	if event.AppointmentDate != "2026-03-13" || event.OfficialRef != "JAL-2026-000123" || event.VenueName != "CCL Jalisco" {
		t.Fatalf("unexpected event: %+v", event)
	}
}
