package httpadapter

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

type createFilingRequest struct {
	CaseRef     string                   `json:"case_ref"`
	AccountID   string                   `json:"account_id"`
	WorkerRef   string                   `json:"worker_ref"`
	NotifyEmail string                   `json:"notify_email"`
	Workplace   domain.JurisdictionInput `json:"workplace"`
	Mode        domain.FilingMode        `json:"mode"`
	Motive      domain.Motive            `json:"motive"`
	DisputeDate openapi_types.Date       `json:"dispute_date"`
}

func (r createFilingRequest) toDraftInput() domain.DraftInput {
	return domain.DraftInput{
		CaseRef:     r.CaseRef,
		AccountID:   r.AccountID,
		WorkerRef:   r.WorkerRef,
		NotifyEmail: r.NotifyEmail,
		Workplace:   r.Workplace,
		Mode:        r.Mode,
		Motive:      r.Motive,
		DisputeDate: r.DisputeDate.Time,
	}
}

type filingResponse struct {
	ID                string                    `json:"id"`
	CaseRef           string                    `json:"case_ref"`
	AccountID         string                    `json:"account_id,omitempty"`
	WorkerRef         string                    `json:"worker_ref"`
	Jurisdiction      domain.JurisdictionResult `json:"jurisdiction"`
	Mode              domain.FilingMode         `json:"mode"`
	Motive            domain.Motive             `json:"motive"`
	DisputeDate       openapi_types.Date        `json:"dispute_date"`
	Status            domain.FilingStatus       `json:"status"`
	OfficialRef       string                    `json:"official_ref,omitempty"`
	AppointmentDate   *openapi_types.Date       `json:"appointment_date,omitempty"`
	ErrorCode         string                    `json:"error_code,omitempty"`
	ErrorDetail       string                    `json:"error_detail,omitempty"`
	CreditDebited     bool                      `json:"credit_debited"`
	Guide             *domain.ManualGuide       `json:"guide,omitempty"`
	PreviousAttemptID string                    `json:"previous_attempt_id,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	CompletedAt       *time.Time                `json:"completed_at,omitempty"`
}

func toFilingResponse(f *domain.FilingRequest) filingResponse {
	resp := filingResponse{
		ID:                f.ID,
		CaseRef:           f.CaseRef,
		AccountID:         f.AccountID,
		WorkerRef:         f.WorkerRef,
		Jurisdiction:      f.Jurisdiction,
		Mode:              f.Mode,
		Motive:            f.Motive,
		DisputeDate:       openapi_types.Date{Time: f.DisputeDate},
		Status:            f.Status,
		OfficialRef:       f.OfficialRef,
		ErrorCode:         f.ErrorCode,
		ErrorDetail:       f.ErrorDetail,
		CreditDebited:     f.CreditDebited,
		Guide:             f.Guide,
		PreviousAttemptID: f.PreviousAttemptID,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
		CompletedAt:       f.CompletedAt,
	}
	if f.AppointmentDate != nil {
		resp.AppointmentDate = &openapi_types.Date{Time: *f.AppointmentDate}
	}
	return resp
}

type filingListResponse struct {
	CaseRef string           `json:"case_ref"`
	Items   []filingResponse `json:"items"`
}

type reconciliationListResponse struct {
	Items []domain.ReconciliationException `json:"items"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}
