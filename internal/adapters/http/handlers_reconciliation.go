package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/export"
)

func (rt *Router) listReconciliations(w http.ResponseWriter, r *http.Request) {
	if err := authorizeAdmin(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := rt.services.Reconciliations.ListOpen(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reconciliationListResponse{Items: items})
}

func (rt *Router) resolveReconciliation(w http.ResponseWriter, r *http.Request) {
	if err := authorizeAdmin(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.services.Reconciliations.Resolve(r.Context(), r.PathValue("exceptionId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) exportReconciliations(w http.ResponseWriter, r *http.Request) {
	if err := authorizeAdmin(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := rt.services.Reconciliations.ListOpen(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReconciliationsXLSX(&buf, items); err != nil {
		writeError(w, r, fmt.Errorf("export reconciliations: %w", err))
		return
	}

	filename := "reconciliations-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
