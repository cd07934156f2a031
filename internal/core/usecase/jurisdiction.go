package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

// JurisdictionResolver decides competency and venue from the workplace and the
// employer's industry. The workplace address is the only geographic input: an
// employer's fiscal address would route filings to the wrong venue.
type JurisdictionResolver struct {
	catalog *domain.Catalog
}

func NewJurisdictionResolver(catalog *domain.Catalog) *JurisdictionResolver {
	return &JurisdictionResolver{catalog: catalog}
}

func (r *JurisdictionResolver) Resolve(_ context.Context, input domain.JurisdictionInput) (domain.JurisdictionResult, error) {
	if strings.TrimSpace(input.WorkplaceAddress) == "" {
		return domain.JurisdictionResult{}, domain.WrapError(domain.ErrInvalidInput, "resolve jurisdiction", errors.New("workplace address is required"))
	}
	if input.Coordinates != nil {
		if err := input.Coordinates.Validate(); err != nil {
			return domain.JurisdictionResult{}, domain.WrapError(domain.ErrInvalidInput, "resolve jurisdiction", err)
		}
	}

	region, ok := r.catalog.Region(input.WorkplaceState)
	if !ok {
		return domain.JurisdictionResult{}, domain.WrapError(
			domain.ErrUnresolvableLocation,
			"resolve jurisdiction",
			fmt.Errorf("no venue mapping for workplace state %q", input.WorkplaceState),
		)
	}

	result := domain.JurisdictionResult{
		RegionKey:        region.Key,
		RegionName:       region.Name,
		WorkplaceAddress: strings.TrimSpace(input.WorkplaceAddress),
		Coordinates:      input.Coordinates,
		CatalogVersion:   r.catalog.Version,
	}

	if industry, federal := r.federalIndustry(input); federal {
		result.Competency = domain.CompetencyFederal
		result.Venue = r.federalVenue(region)
		result.Federal = &domain.FederalBasis{
			IndustryCode: industry.Code,
			IndustryName: industry.Name,
		}
	} else {
		result.Competency = domain.CompetencyLocal
		result.Venue, result.Local = localVenue(region, input.WorkplaceMunicipality)
	}

	if err := result.Validate(); err != nil {
		return domain.JurisdictionResult{}, domain.WrapError(domain.ErrUnresolvableLocation, "resolve jurisdiction", err)
	}
	return result, nil
}

// federalIndustry treats the industry code as the sole federal trigger.
// Coordinates never change competency.
func (r *JurisdictionResolver) federalIndustry(input domain.JurisdictionInput) (domain.IndustryEntry, bool) {
	if !input.HasIndustryCode() {
		return domain.IndustryEntry{}, false
	}
	return r.catalog.Industry(input.IndustryCode)
}

func (r *JurisdictionResolver) federalVenue(region domain.Region) domain.Venue {
	if region.FederalOffice != nil && !region.FederalOffice.IsZero() {
		return *region.FederalOffice
	}
	return r.catalog.FederalDefault
}

func localVenue(region domain.Region, municipality string) (domain.Venue, *domain.LocalBasis) {
	venue := region.LocalVenue
	basis := &domain.LocalBasis{Municipality: strings.TrimSpace(municipality)}

	office, ok := region.OfficeFor(municipality)
	if !ok {
		return venue, basis
	}
	basis.OfficeID = office.ID
	if office.Address != "" {
		venue.Address = office.Address
	}
	if office.Hours != "" {
		venue.Hours = office.Hours
	}
	return venue, basis
}
