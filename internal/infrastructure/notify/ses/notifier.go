// Package ses sends the ratification appointment email through Amazon SES.
package ses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/resilience"
)

type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Notifier struct {
	client   EmailSender
	from     string
	executor *resilience.Executor
}

func New(ctx context.Context, region, from string, executor *resilience.Executor) (*Notifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(ses.NewFromConfig(cfg), from, executor), nil
}

func NewWithClient(client EmailSender, from string, executor *resilience.Executor) *Notifier {
	return &Notifier{client: client, from: from, executor: executor}
}

// NotifyAppointment is a no-op for filings without a notification address.
func (n *Notifier) NotifyAppointment(ctx context.Context, filing domain.FilingRequest) error {
	to := strings.TrimSpace(filing.NotifyEmail)
	if to == "" {
		return nil
	}

	subject, body := appointmentMessage(filing)
	input := &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(n.from),
	}

	send := func(ctx context.Context) error {
		if _, err := n.client.SendEmail(ctx, input); err != nil {
			return fmt.Errorf("ses send email: %w", err)
		}
		return nil
	}
	if n.executor == nil {
		return send(ctx)
	}
	return n.executor.Execute(ctx, "ses.send_email", send, func(error) resilience.ErrorClassification {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	})
}

func appointmentMessage(filing domain.FilingRequest) (string, string) {
	venue := filing.Jurisdiction.Venue
	appointment := "to be confirmed by the venue"
	if filing.AppointmentDate != nil {
		appointment = filing.AppointmentDate.Format(time.DateOnly)
	}

	subject := fmt.Sprintf("Conciliation request %s filed", filing.OfficialRef)
	var b strings.Builder
	fmt.Fprintf(&b, "Your conciliation request for case %s was filed.\n\n", filing.CaseRef)
	fmt.Fprintf(&b, "Official reference: %s\n", filing.OfficialRef)
	fmt.Fprintf(&b, "Ratification appointment: %s\n", appointment)
	fmt.Fprintf(&b, "Venue: %s\n", venue.Name)
	if venue.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", venue.Address)
	}
	if venue.Hours != "" {
		fmt.Fprintf(&b, "Hours: %s\n", venue.Hours)
	}
	b.WriteString("\nBring official identification and the official reference to the appointment.\n")
	return subject, b.String()
}
