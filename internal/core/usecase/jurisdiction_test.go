package usecase

import (
	"context"
	"testing"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func testCatalog() *domain.Catalog {
	industries := []domain.IndustryEntry{
		{Code: "MIN", Name: "Minera"},
		{Code: "AUT", Name: "Automotriz"},
		{Code: "BAN", Name: "Banca y credito"},
	}
	regions := []domain.Region{
		{
			Key:        "JAL",
			Name:       "Jalisco",
			LocalVenue: domain.Venue{ID: "jal-ccl", Name: "Centro de Conciliacion Laboral de Jalisco", Address: "Guadalajara centro", Hours: "08:00-15:00", PortalURL: "https://conciliacion.jalisco.example"},
			LocalOffices: []domain.Office{
				{ID: "jal-ccl-zapopan", Municipalities: []string{"Zapopan"}, Address: "Av. Americas 1600, Zapopan", Hours: "09:00-15:00"},
			},
			FederalOffice: &domain.Venue{ID: "cfcrl-jal", Name: "Oficina CFCRL Jalisco", Address: "Guadalajara"},
		},
		{
			Key:        "NLE",
			Name:       "Nuevo León",
			Aliases:    []string{"NL"},
			LocalVenue: domain.Venue{ID: "nle-ccl", Name: "Centro de Conciliacion Laboral de Nuevo Leon"},
		},
	}
	return domain.NewCatalog("test-1", domain.Venue{ID: "cfcrl-central", Name: "CFCRL"}, industries, regions)
}

func resolveInput(state, industry string) domain.JurisdictionInput {
	return domain.JurisdictionInput{
		WorkplaceState:   state,
		WorkplaceAddress: "Calle 1 #100",
		IndustryCode:     industry,
	}
}

func TestResolveFederalForEveryCatalogIndustry(t *testing.T) {
	catalog := testCatalog()
	resolver := NewJurisdictionResolver(catalog)

	for _, entry := range catalog.Industries() {
		for _, state := range []string{"Jalisco", "NL"} {
			result, err := resolver.Resolve(context.Background(), resolveInput(state, entry.Code))
			if err != nil {
				t.Fatalf("Resolve(%s, %s) error = %v", state, entry.Code, err)
			}
			if result.Competency != domain.CompetencyFederal || result.Federal == nil || result.Local != nil {
				t.Fatalf("Resolve(%s, %s) expected federal, got %+v", state, entry.Code, result)
			}
			if result.Venue.IsZero() {
				t.Fatalf("federal result without venue")
			}
		}
	}
}

func TestResolveLocalForCodesOutsideCatalog(t *testing.T) {
	resolver := NewJurisdictionResolver(testCatalog())

	for _, code := range []string{"", "none", "NONE", "RETAIL", "restaurant"} {
		result, err := resolver.Resolve(context.Background(), resolveInput("jalisco", code))
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", code, err)
		}
		if result.Competency != domain.CompetencyLocal || result.Venue.ID != "jal-ccl" {
			t.Fatalf("Resolve(%q) expected local Jalisco venue, got %+v", code, result)
		}
	}
}

func TestResolveFederalUsesRegionOfficeThenDefault(t *testing.T) {
	resolver := NewJurisdictionResolver(testCatalog())

	jal, err := resolver.Resolve(context.Background(), resolveInput("Jalisco", "min"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if jal.Venue.ID != "cfcrl-jal" {
		t.Fatalf("expected regional federal office, got %s", jal.Venue.ID)
	}

	nle, err := resolver.Resolve(context.Background(), resolveInput("Nuevo Leon", "MIN"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if nle.Venue.ID != "cfcrl-central" || nle.RegionKey != "NLE" {
		t.Fatalf("expected federal default for NLE, got %+v", nle)
	}
}

func TestResolveMunicipalityRefinesAddressOnly(t *testing.T) {
	resolver := NewJurisdictionResolver(testCatalog())
	input := resolveInput("Jalisco", "")
	input.WorkplaceMunicipality = "zapopan"

	result, err := resolver.Resolve(context.Background(), input)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Competency != domain.CompetencyLocal || result.Venue.ID != "jal-ccl" {
		t.Fatalf("municipality must not change competency or venue: %+v", result)
	}
	if result.Venue.Address != "Av. Americas 1600, Zapopan" || result.Local.OfficeID != "jal-ccl-zapopan" {
		t.Fatalf("expected Zapopan office address, got %+v", result)
	}
}

func TestResolveUnknownStateFails(t *testing.T) {
	resolver := NewJurisdictionResolver(testCatalog())

	for _, state := range []string{"Atlantis", "Zacatecas", ""} {
		result, err := resolver.Resolve(context.Background(), resolveInput(state, "MIN"))
		if !domain.IsKind(err, domain.ErrUnresolvableLocation) {
			t.Fatalf("Resolve(%q) expected ErrUnresolvableLocation, got %v", state, err)
		}
		if !result.Venue.IsZero() {
			t.Fatalf("failed resolution must not carry a venue")
		}
	}
}

func TestResolveRejectsOutOfRangeCoordinates(t *testing.T) {
	resolver := NewJurisdictionResolver(testCatalog())
	input := resolveInput("Jalisco", "")
	input.Coordinates = &domain.Coordinates{Latitude: 120, Longitude: -103.3}

	if _, err := resolver.Resolve(context.Background(), input); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResolveCoordinatesNeverMakeFederal(t *testing.T) {
	resolver := NewJurisdictionResolver(testCatalog())
	input := resolveInput("Jalisco", "")
	input.Coordinates = &domain.Coordinates{Latitude: 20.67, Longitude: -103.35}

	result, err := resolver.Resolve(context.Background(), input)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Competency != domain.CompetencyLocal || result.Coordinates == nil {
		t.Fatalf("expected local result carrying coordinates, got %+v", result)
	}
}
