package httpadapter

import (
	"context"
	"net/http"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func (rt *Router) createDraftFiling(w http.ResponseWriter, r *http.Request) {
	var req createFilingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AccountID != "" {
		if err := authorizeAccount(r.Context(), req.AccountID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	filing, err := rt.services.Filings.CreateDraft(r.Context(), req.toDraftInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFilingResponse(filing))
}

func (rt *Router) getFiling(w http.ResponseWriter, r *http.Request) {
	filing, ok := rt.loadAuthorizedFiling(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toFilingResponse(filing))
}

// runAutomatedFiling answers 200 with the errored request when the portal step
// fails: the request reached a terminal state and the body says why.
func (rt *Router) runAutomatedFiling(w http.ResponseWriter, r *http.Request) {
	if _, ok := rt.loadAuthorizedFiling(w, r); !ok {
		return
	}
	filing, err := rt.services.Filings.RunAutomated(r.Context(), r.PathValue("filingId"))
	if err != nil && filing == nil {
		rt.writeFilingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFilingResponse(filing))
}

func (rt *Router) dispatchAutomatedFiling(w http.ResponseWriter, r *http.Request) {
	if _, ok := rt.loadAuthorizedFiling(w, r); !ok {
		return
	}
	filing, err := rt.services.Filings.DispatchAutomated(r.Context(), r.PathValue("filingId"))
	if err != nil {
		rt.writeFilingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toFilingResponse(filing))
}

func (rt *Router) generateManualGuide(w http.ResponseWriter, r *http.Request) {
	rt.transition(w, r, http.StatusOK, rt.services.Filings.GenerateManualGuide)
}

func (rt *Router) cancelFiling(w http.ResponseWriter, r *http.Request) {
	rt.transition(w, r, http.StatusOK, rt.services.Filings.Cancel)
}

func (rt *Router) reattemptFiling(w http.ResponseWriter, r *http.Request) {
	rt.transition(w, r, http.StatusCreated, rt.services.Filings.Reattempt)
}

func (rt *Router) transition(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	apply func(ctx context.Context, filingID string) (*domain.FilingRequest, error),
) {
	if _, ok := rt.loadAuthorizedFiling(w, r); !ok {
		return
	}
	filing, err := apply(r.Context(), r.PathValue("filingId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, toFilingResponse(filing))
}

func (rt *Router) listFilingsByCase(w http.ResponseWriter, r *http.Request) {
	caseRef := r.PathValue("caseRef")
	filings, err := rt.services.Reader.ListByCase(r.Context(), caseRef)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]filingResponse, 0, len(filings))
	for i := range filings {
		if authorizeFiling(r.Context(), &filings[i]) != nil {
			continue
		}
		items = append(items, toFilingResponse(&filings[i]))
	}
	writeJSON(w, http.StatusOK, filingListResponse{CaseRef: caseRef, Items: items})
}

func (rt *Router) loadAuthorizedFiling(w http.ResponseWriter, r *http.Request) (*domain.FilingRequest, bool) {
	filing, err := rt.services.Reader.GetByID(r.Context(), r.PathValue("filingId"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if err := authorizeFiling(r.Context(), filing); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return filing, true
}
