package usecase

import (
	"fmt"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

var baseRequiredDocuments = []string{
	"Official identification of the worker (INE or passport)",
	"CURP",
	"Proof of address no older than three months",
	"Employer name as it appears on pay slips or contract",
	"Exact workplace address",
}

var motiveDocuments = map[domain.Motive][]string{
	domain.MotiveDismissal: {
		"Dismissal notice or a written account of the dismissal (date, place, who notified it)",
		"Last pay slips",
	},
	domain.MotiveConstructiveDismissal: {
		"Evidence of the employer's breach (salary cuts, unpaid wages, harassment reports)",
		"Last pay slips",
	},
	domain.MotiveUnpaidBenefits: {
		"Pay slips showing the unpaid period or missing benefits",
		"Employment contract, if any",
	},
	domain.MotiveVoluntaryTermination: {
		"Signed resignation letter",
		"Settlement calculation, if the employer issued one",
	},
}

func buildManualGuide(jurisdiction domain.JurisdictionResult, motive domain.Motive) domain.ManualGuide {
	venue := jurisdiction.Venue
	authority := "the local conciliation center of " + jurisdiction.RegionName
	if jurisdiction.IsFederal() {
		authority = "the federal conciliation center"
	}

	steps := []string{
		fmt.Sprintf("Open the pre-filing portal of %s at %s.", authority, venue.PortalURL),
		"Register the request with the worker's personal data and the workplace address (not the employer's fiscal address).",
		"Describe the conflict and select the motive matching the case.",
		"Save the folio issued by the portal; it identifies the request in every later step.",
		fmt.Sprintf("Attend the ratification appointment in person at %s (%s) with the documents listed below.", venue.Name, venue.Address),
	}
	if jurisdiction.IsFederal() && jurisdiction.Federal != nil {
		steps = append(steps, fmt.Sprintf("The employer's industry (%s) falls under federal competency; do not file with the local center.", jurisdiction.Federal.IndustryName))
	}

	docs := append([]string{}, baseRequiredDocuments...)
	docs = append(docs, motiveDocuments[motive]...)

	return domain.ManualGuide{
		VenueName:         venue.Name,
		VenueAddress:      venue.Address,
		VenueHours:        venue.Hours,
		PortalURL:         venue.PortalURL,
		Competency:        string(jurisdiction.Competency),
		Steps:             steps,
		RequiredDocuments: docs,
		DeadlineNote:      "Ratification must happen within the deadline shown by the portal; missing it voids the pre-filing.",
	}
}
