package httpadapter

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

const (
	accountIDHeader   = "X-Account-Id"
	accountRoleHeader = "X-Account-Role"
)

type principalContextKey struct{}

func principalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(domain.Principal)
	return principal, ok
}

// sessionMiddleware trusts the gateway: a shared bearer secret proves the call
// came through it, and the account headers carry the session it resolved.
func sessionMiddleware(apiKeys []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if len(apiKeys) > 0 && !isAuthorizedBearerHeader(r.Header.Get("Authorization"), apiKeys) {
			writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("missing or invalid bearer token")))
			return
		}

		principal := domain.Principal{
			AccountID: strings.TrimSpace(r.Header.Get(accountIDHeader)),
			Role:      domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(accountRoleHeader)))),
		}
		if principal.AccountID == "" || !isKnownRole(principal.Role) {
			writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("account session headers are required")))
			return
		}

		reportAccount(w, principal.AccountID)
		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicPath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}

func isKnownRole(role domain.Role) bool {
	switch role {
	case domain.RoleWorker, domain.RoleProfessional, domain.RoleFirm, domain.RoleAdmin:
		return true
	default:
		return false
	}
}

func isAuthorizedBearerHeader(headerValue string, expectedTokens []string) bool {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	if token == "" {
		return false
	}
	for _, expected := range expectedTokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1 {
			return true
		}
	}
	return false
}

// authorizeAccount fails with ErrForbidden unless the caller owns accountID or is an admin.
func authorizeAccount(ctx context.Context, accountID string) error {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return domain.WrapError(domain.ErrUnauthorized, "authorize", errors.New("no session"))
	}
	if !principal.CanActFor(accountID) {
		return domain.WrapError(domain.ErrForbidden, "authorize", errors.New("account belongs to another subject"))
	}
	return nil
}

// authorizeFiling lets anyone with a session act on account-less (manual) filings.
func authorizeFiling(ctx context.Context, filing *domain.FilingRequest) error {
	if filing.AccountID == "" {
		if _, ok := principalFromContext(ctx); !ok {
			return domain.WrapError(domain.ErrUnauthorized, "authorize", errors.New("no session"))
		}
		return nil
	}
	return authorizeAccount(ctx, filing.AccountID)
}

func authorizeAdmin(ctx context.Context) error {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return domain.WrapError(domain.ErrUnauthorized, "authorize", errors.New("no session"))
	}
	if principal.Role != domain.RoleAdmin {
		return domain.WrapError(domain.ErrForbidden, "authorize", errors.New("admin role required"))
	}
	return nil
}
