package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/resilience"
)

// FilingCompletedEvent is published once a filing reaches completed, for
// downstream consumers such as the case timeline or SMS reminders.
type FilingCompletedEvent struct {
	FilingID        string    `json:"filing_id"`
	CaseRef         string    `json:"case_ref"`
	AccountID       string    `json:"account_id,omitempty"`
	OfficialRef     string    `json:"official_ref"`
	AppointmentDate string    `json:"appointment_date"`
	VenueName       string    `json:"venue_name"`
	VenueAddress    string    `json:"venue_address"`
	CompletedAt     time.Time `json:"completed_at"`
}

// EventNotifier implements ports.Notifier by publishing a completion event.
type EventNotifier struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

func NewEventNotifier(conn *nats.Conn, subject string, executor *resilience.Executor) *EventNotifier {
	return &EventNotifier{conn: conn, subject: subject, executor: executor}
}

func (n *EventNotifier) NotifyAppointment(ctx context.Context, filing domain.FilingRequest) error {
	payload, err := json.Marshal(newCompletedEvent(filing))
	if err != nil {
		return fmt.Errorf("marshal filing completed event: %w", err)
	}
	return publish(ctx, n.executor, "nats.publish.filing_completed", func() error {
		return n.conn.Publish(n.subject, payload)
	})
}

func newCompletedEvent(filing domain.FilingRequest) FilingCompletedEvent {
	event := FilingCompletedEvent{
		FilingID:     filing.ID,
		CaseRef:      filing.CaseRef,
		AccountID:    filing.AccountID,
		OfficialRef:  filing.OfficialRef,
		VenueName:    filing.Jurisdiction.Venue.Name,
		VenueAddress: filing.Jurisdiction.Venue.Address,
	}
	if filing.AppointmentDate != nil {
		event.AppointmentDate = filing.AppointmentDate.Format(time.DateOnly)
	}
	if filing.CompletedAt != nil {
		event.CompletedAt = *filing.CompletedAt
	}
	return event
}
