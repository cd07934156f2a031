// Package notify delivers appointment notifications to one or more channels.
package notify

import (
	"context"
	"errors"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
)

// Fanout calls every notifier; one failing channel does not stop the others.
type Fanout []ports.Notifier

func (f Fanout) NotifyAppointment(ctx context.Context, filing domain.FilingRequest) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.NotifyAppointment(ctx, filing); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
