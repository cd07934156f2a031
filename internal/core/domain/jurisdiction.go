package domain

import (
	"fmt"
	"strings"
)

type Competency string

const (
	CompetencyFederal Competency = "federal"
	CompetencyLocal   Competency = "local"
)

// NoIndustryCode is accepted as an explicit "not classified" marker.
const NoIndustryCode = "none"

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", c.Longitude)
	}
	return nil
}

type JurisdictionInput struct {
	WorkplaceState        string       `json:"workplace_state"`
	WorkplaceMunicipality string       `json:"workplace_municipality,omitempty"`
	WorkplaceAddress      string       `json:"workplace_address"`
	Coordinates           *Coordinates `json:"coordinates,omitempty"`
	IndustryCode          string       `json:"industry_code,omitempty"`
}

// HasIndustryCode reports whether the input carries a classification worth looking up.
func (in JurisdictionInput) HasIndustryCode() bool {
	code := strings.TrimSpace(in.IndustryCode)
	return code != "" && !strings.EqualFold(code, NoIndustryCode)
}

type Venue struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Address   string `json:"address" yaml:"address"`
	Hours     string `json:"hours" yaml:"hours"`
	PortalURL string `json:"portal_url" yaml:"portal_url"`
}

func (v Venue) IsZero() bool {
	return v.ID == ""
}

// FederalBasis is present only on federal results.
type FederalBasis struct {
	IndustryCode string `json:"industry_code"`
	IndustryName string `json:"industry_name"`
}

// LocalBasis is present only on local results.
type LocalBasis struct {
	Municipality string `json:"municipality,omitempty"`
	OfficeID     string `json:"office_id,omitempty"`
}

// JurisdictionResult is a tagged variant: Competency selects which of Federal or
// Local is set. It is embedded by value into filings so later catalog changes
// never rewrite history.
type JurisdictionResult struct {
	Competency       Competency    `json:"competency"`
	RegionKey        string        `json:"region_key"`
	RegionName       string        `json:"region_name"`
	Venue            Venue         `json:"venue"`
	WorkplaceAddress string        `json:"workplace_address"`
	Coordinates      *Coordinates  `json:"coordinates,omitempty"`
	CatalogVersion   string        `json:"catalog_version,omitempty"`
	Federal          *FederalBasis `json:"federal,omitempty"`
	Local            *LocalBasis   `json:"local,omitempty"`
}

func (r JurisdictionResult) IsFederal() bool {
	return r.Competency == CompetencyFederal
}

// Validate checks the variant invariants of a resolved result.
func (r JurisdictionResult) Validate() error {
	if r.Venue.IsZero() {
		return fmt.Errorf("jurisdiction result has no venue")
	}
	if strings.TrimSpace(r.RegionKey) == "" {
		return fmt.Errorf("jurisdiction result has no region")
	}
	switch r.Competency {
	case CompetencyFederal:
		if r.Federal == nil || r.Local != nil {
			return fmt.Errorf("federal result must carry only federal basis")
		}
	case CompetencyLocal:
		if r.Local == nil || r.Federal != nil {
			return fmt.Errorf("local result must carry only local basis")
		}
	default:
		return fmt.Errorf("unknown competency %q", r.Competency)
	}
	return nil
}
