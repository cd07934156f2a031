package httpadapter

import (
	"net/http"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrInsufficientCredit):
		return http.StatusPaymentRequired
	case domain.IsKind(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrFilingNotFound),
		domain.IsKind(err, domain.ErrAccountNotFound),
		domain.IsKind(err, domain.ErrProxyNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrUnresolvableLocation):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrNoProxyAvailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
