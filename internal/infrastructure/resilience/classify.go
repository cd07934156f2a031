package resilience

import (
	"context"
	"errors"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// PermanentClassifier counts every error against the breaker and never retries.
func PermanentClassifier(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

// contextAware stops caller cancellation from tripping breakers or retrying.
func contextAware(next ErrorClassifier) ErrorClassifier {
	return func(err error) ErrorClassification {
		if errors.Is(err, context.Canceled) {
			return ErrorClassification{}
		}
		return next(err)
	}
}

// Temporary tags err as domain.ErrTemporary when the caller may try again later:
// an open breaker or a failure the classifier considers retryable.
func Temporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || (classifier != nil && classifier(err).Retryable) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
