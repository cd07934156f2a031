package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolvableLocation = errors.New("unresolvable location")
	ErrInsufficientCredit   = errors.New("insufficient credit")
	ErrNoProxyAvailable     = errors.New("no proxy available")
	ErrAutomationFailure    = errors.New("automation failure")
	ErrAutomationTimeout    = errors.New("automation timeout")
	ErrRunInterrupted       = errors.New("automation run interrupted")
	ErrLedgerReconciliation = errors.New("ledger reconciliation required")

	ErrFilingNotFound    = errors.New("filing not found")
	ErrAccountNotFound   = errors.New("credit account not found")
	ErrProxyNotFound     = errors.New("proxy not found")
	ErrInvalidTransition = errors.New("invalid filing transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorCode returns the stable machine-readable code of the first known kind in err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrUnresolvableLocation):
		return "unresolvable_location"
	case IsKind(err, ErrInsufficientCredit):
		return "insufficient_credit"
	case IsKind(err, ErrNoProxyAvailable):
		return "no_proxy_available"
	case IsKind(err, ErrAutomationTimeout):
		return "automation_timeout"
	case IsKind(err, ErrAutomationFailure):
		return "automation_failure"
	case IsKind(err, ErrRunInterrupted):
		return "run_interrupted"
	case IsKind(err, ErrLedgerReconciliation):
		return "ledger_reconciliation"
	case IsKind(err, ErrFilingNotFound), IsKind(err, ErrAccountNotFound), IsKind(err, ErrProxyNotFound):
		return "not_found"
	case IsKind(err, ErrInvalidTransition):
		return "invalid_transition"
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	case IsKind(err, ErrUnauthorized):
		return "unauthorized"
	case IsKind(err, ErrForbidden):
		return "forbidden"
	case IsKind(err, ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}
