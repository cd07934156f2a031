package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type FilingStatus string

const (
	FilingDraft      FilingStatus = "draft"
	FilingGenerating FilingStatus = "generating"
	FilingCompleted  FilingStatus = "completed"
	FilingError      FilingStatus = "error"
	FilingCancelled  FilingStatus = "cancelled"
)

// IsTerminal reports whether the status can no longer change in place.
func (s FilingStatus) IsTerminal() bool {
	switch s {
	case FilingCompleted, FilingError, FilingCancelled:
		return true
	default:
		return false
	}
}

type FilingMode string

const (
	FilingAutomated FilingMode = "automated"
	FilingManual    FilingMode = "manual"
)

func (m FilingMode) IsValid() bool {
	return m == FilingAutomated || m == FilingManual
}

type Motive string

const (
	MotiveDismissal             Motive = "dismissal"
	MotiveConstructiveDismissal Motive = "constructive_dismissal"
	MotiveUnpaidBenefits        Motive = "unpaid_benefits"
	MotiveVoluntaryTermination  Motive = "voluntary_termination"
	MotiveOther                 Motive = "other"
)

func (m Motive) IsValid() bool {
	switch m {
	case MotiveDismissal, MotiveConstructiveDismissal, MotiveUnpaidBenefits, MotiveVoluntaryTermination, MotiveOther:
		return true
	default:
		return false
	}
}

// FilingRequest is one attempt to lodge a conciliation request. Only the
// filing state machine mutates it; terminal requests are never reopened.
type FilingRequest struct {
	ID                string             `json:"id"`
	CaseRef           string             `json:"case_ref"`
	AccountID         string             `json:"account_id,omitempty"`
	WorkerRef         string             `json:"worker_ref"`
	NotifyEmail       string             `json:"notify_email,omitempty"`
	Jurisdiction      JurisdictionResult `json:"jurisdiction"`
	Mode              FilingMode         `json:"mode"`
	Motive            Motive             `json:"motive"`
	DisputeDate       time.Time          `json:"dispute_date"`
	Status            FilingStatus       `json:"status"`
	ProxyID           string             `json:"proxy_id,omitempty"`
	OfficialRef       string             `json:"official_ref,omitempty"`
	AppointmentDate   *time.Time         `json:"appointment_date,omitempty"`
	ErrorCode         string             `json:"error_code,omitempty"`
	ErrorDetail       string             `json:"error_detail,omitempty"`
	CreditDebited     bool               `json:"credit_debited"`
	Guide             *ManualGuide       `json:"guide,omitempty"`
	PreviousAttemptID string             `json:"previous_attempt_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
}

type DraftInput struct {
	CaseRef           string
	AccountID         string
	WorkerRef         string
	NotifyEmail       string
	Workplace         JurisdictionInput
	Mode              FilingMode
	Motive            Motive
	DisputeDate       time.Time
	PreviousAttemptID string
}

func (in DraftInput) Validate() error {
	var problems []string
	if strings.TrimSpace(in.CaseRef) == "" {
		problems = append(problems, "case_ref is required")
	}
	if strings.TrimSpace(in.WorkerRef) == "" {
		problems = append(problems, "worker_ref is required")
	}
	if strings.TrimSpace(in.Workplace.WorkplaceState) == "" {
		problems = append(problems, "workplace_state is required")
	}
	if strings.TrimSpace(in.Workplace.WorkplaceAddress) == "" {
		problems = append(problems, "workplace_address is required")
	}
	if !in.Mode.IsValid() {
		problems = append(problems, fmt.Sprintf("mode %q is not supported", in.Mode))
	}
	if in.Mode == FilingAutomated && strings.TrimSpace(in.AccountID) == "" {
		problems = append(problems, "account_id is required for automated filings")
	}
	if !in.Motive.IsValid() {
		problems = append(problems, fmt.Sprintf("motive %q is not supported", in.Motive))
	}
	if in.DisputeDate.IsZero() {
		problems = append(problems, "dispute_date is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ManualGuide is the artifact produced instead of an official filing in manual mode.
type ManualGuide struct {
	VenueName         string   `json:"venue_name"`
	VenueAddress      string   `json:"venue_address"`
	VenueHours        string   `json:"venue_hours"`
	PortalURL         string   `json:"portal_url"`
	Competency        string   `json:"competency"`
	Steps             []string `json:"steps"`
	RequiredDocuments []string `json:"required_documents"`
	DeadlineNote      string   `json:"deadline_note"`
}

// AutomationRequest is what the browser-automation collaborator receives.
type AutomationRequest struct {
	FilingID      string             `json:"filing_id"`
	CaseRef       string             `json:"case_ref"`
	WorkerRef     string             `json:"worker_ref"`
	Motive        Motive             `json:"motive"`
	DisputeDate   time.Time          `json:"dispute_date"`
	Jurisdiction  JurisdictionResult `json:"jurisdiction"`
	ProxyEndpoint string             `json:"proxy_endpoint"`
}

// AutomationResult is the collaborator's answer. Success requires an official reference.
type AutomationResult struct {
	Success     bool   `json:"success"`
	OfficialRef string `json:"official_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
