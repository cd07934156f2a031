package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/config"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/observability/metrics"
)

const maxRequestBodyBytes = 1 << 20

// Services are the use cases the HTTP surface exposes.
type Services struct {
	Resolver        ports.JurisdictionResolver
	Credits         ports.CreditChecker
	Filings         ports.FilingService
	Reader          ports.FilingReader
	Reconciliations ports.ReconciliationService
}

type Router struct {
	services  Services
	validator *requestValidator
	metrics   *metrics.HTTPServerMetrics

	apiKeys           []string
	rateLimitRPS      float64
	rateLimitBurst    int
	maxInFlight       int
	queueWait         time.Duration
	noProxyRetryAfter time.Duration
}

func NewRouter(cfg config.Config, services Services, httpMetrics *metrics.HTTPServerMetrics) (*Router, error) {
	validator, err := newRequestValidator(context.Background())
	if err != nil {
		return nil, err
	}
	return &Router{
		services:          services,
		validator:         validator,
		metrics:           httpMetrics,
		apiKeys:           cfg.APIKeys,
		rateLimitRPS:      cfg.APIRateLimitRPS,
		rateLimitBurst:    cfg.APIRateLimitBurst,
		maxInFlight:       cfg.APIMaxInFlight,
		queueWait:         cfg.APIQueueWait,
		noProxyRetryAfter: cfg.NoProxyRetryAfter,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/jurisdiction/resolve", rt.resolveJurisdiction)
	mux.HandleFunc("GET /v1/accounts/{accountId}/credits", rt.checkCredits)
	mux.HandleFunc("POST /v1/filings", rt.createDraftFiling)
	mux.HandleFunc("GET /v1/filings/{filingId}", rt.getFiling)
	mux.HandleFunc("POST /v1/filings/{filingId}/run", rt.runAutomatedFiling)
	mux.HandleFunc("POST /v1/filings/{filingId}/dispatch", rt.dispatchAutomatedFiling)
	mux.HandleFunc("POST /v1/filings/{filingId}/manual-guide", rt.generateManualGuide)
	mux.HandleFunc("POST /v1/filings/{filingId}/cancel", rt.cancelFiling)
	mux.HandleFunc("POST /v1/filings/{filingId}/reattempt", rt.reattemptFiling)
	mux.HandleFunc("GET /v1/cases/{caseRef}/filings", rt.listFilingsByCase)
	mux.HandleFunc("GET /v1/reconciliations", rt.listReconciliations)
	mux.HandleFunc("GET /v1/reconciliations/export.xlsx", rt.exportReconciliations)
	mux.HandleFunc("POST /v1/reconciliations/{exceptionId}/resolve", rt.resolveReconciliation)
	var onLimited func()
	if rt.metrics != nil {
		onLimited = rt.metrics.RecordRateLimited
	}

	var handler http.Handler = mux
	handler = rt.validator.middleware(handler)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, onLimited)
	handler = sessionMiddleware(rt.apiKeys, handler)
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.queueWait)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) resolveJurisdiction(w http.ResponseWriter, r *http.Request) {
	var input domain.JurisdictionInput
	if !decodeJSON(w, r, &input) {
		return
	}
	result, err := rt.services.Resolver.Resolve(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) checkCredits(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	if err := authorizeAccount(r.Context(), accountID); err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := rt.services.Credits.CheckAvailable(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (rt *Router) writeFilingError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsKind(err, domain.ErrNoProxyAvailable) && rt.noProxyRetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(rt.noProxyRetryAfter.Seconds())))
	}
	writeError(w, r, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err)))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("http_request_failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	if errors.Is(err, context.DeadlineExceeded) && status == http.StatusInternalServerError {
		status = http.StatusGatewayTimeout
		message = "request timed out"
	}
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      domain.ErrorCode(err),
		RequestID: requestIDFromContext(r.Context()),
	})
}
