// Package remote talks to the browser-automation service that drives the
// government pre-filing portal.
package remote

import (
	"context"
	"net/http"
	"strings"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/resilience"
)

const submitPath = "/v1/filings/submit"

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client without an HTTP-level timeout: the filing state machine
// bounds every submission with its own deadline.
func New(baseURL, token string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
		executor:   executor,
	}
}

// Submit is never retried here: a repeated submission could lodge the same
// conciliation request twice.
func (c *Client) Submit(ctx context.Context, req domain.AutomationRequest) (domain.AutomationResult, error) {
	call := func(ctx context.Context) (domain.AutomationResult, error) {
		var result domain.AutomationResult
		if err := c.postJSON(ctx, submitPath, submitRequest(req), &result, "submit"); err != nil {
			return domain.AutomationResult{}, err
		}
		return result, nil
	}

	var (
		result domain.AutomationResult
		err    error
	)
	if c.executor != nil {
		result, err = resilience.Call(ctx, c.executor, "automation.submit", call, classifyAutomationError)
	} else {
		result, err = call(ctx)
	}
	if err != nil {
		return domain.AutomationResult{}, resilience.Temporary("automation submit", err, classifyAutomationError)
	}
	return result, nil
}

type submitPayload struct {
	FilingID      string              `json:"filing_id"`
	CaseRef       string              `json:"case_ref"`
	WorkerRef     string              `json:"worker_ref"`
	Motive        domain.Motive       `json:"motive"`
	DisputeDate   string              `json:"dispute_date"`
	Competency    domain.Competency   `json:"competency"`
	RegionKey     string              `json:"region_key"`
	Venue         domain.Venue        `json:"venue"`
	Workplace     string              `json:"workplace_address"`
	Coordinates   *domain.Coordinates `json:"coordinates,omitempty"`
	ProxyEndpoint string              `json:"proxy_endpoint"`
}

func submitRequest(req domain.AutomationRequest) submitPayload {
	return submitPayload{
		FilingID:      req.FilingID,
		CaseRef:       req.CaseRef,
		WorkerRef:     req.WorkerRef,
		Motive:        req.Motive,
		DisputeDate:   req.DisputeDate.Format("2006-01-02"),
		Competency:    req.Jurisdiction.Competency,
		RegionKey:     req.Jurisdiction.RegionKey,
		Venue:         req.Jurisdiction.Venue,
		Workplace:     req.Jurisdiction.WorkplaceAddress,
		Coordinates:   req.Jurisdiction.Coordinates,
		ProxyEndpoint: req.ProxyEndpoint,
	}
}
