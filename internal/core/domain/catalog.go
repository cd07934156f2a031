package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IndustryEntry identifies an industry branch under federal labor competency.
type IndustryEntry struct {
	Code             string   `json:"code" yaml:"code"`
	Name             string   `json:"name" yaml:"name"`
	Description      string   `json:"description" yaml:"description"`
	ExampleEmployers []string `json:"example_employers" yaml:"example_employers"`
}

// Office is a municipality-level branch of a venue. It refines address and hours only.
type Office struct {
	ID             string   `yaml:"id"`
	Municipalities []string `yaml:"municipalities"`
	Address        string   `yaml:"address"`
	Hours          string   `yaml:"hours"`
}

type Region struct {
	Key           string   `yaml:"key"`
	Name          string   `yaml:"name"`
	Aliases       []string `yaml:"aliases"`
	LocalVenue    Venue    `yaml:"local_venue"`
	LocalOffices  []Office `yaml:"local_offices"`
	FederalOffice *Venue   `yaml:"federal_office"`
}

// Catalog is the immutable reference data behind jurisdiction resolution.
// Build it with NewCatalog; lookups never mutate it.
type Catalog struct {
	Version        string
	FederalDefault Venue
	industries     map[string]IndustryEntry
	regions        map[string]Region
	regionOrder    []string
}

func NewCatalog(version string, federalDefault Venue, industries []IndustryEntry, regions []Region) *Catalog {
	c := &Catalog{
		Version:        version,
		FederalDefault: federalDefault,
		industries:     make(map[string]IndustryEntry, len(industries)),
		regions:        make(map[string]Region),
	}
	for _, entry := range industries {
		c.industries[NormalizeName(entry.Code)] = entry
	}
	for _, region := range regions {
		c.regionOrder = append(c.regionOrder, region.Key)
		c.regions[NormalizeName(region.Key)] = region
		c.regions[NormalizeName(region.Name)] = region
		for _, alias := range region.Aliases {
			c.regions[NormalizeName(alias)] = region
		}
	}
	return c
}

func (c *Catalog) Industry(code string) (IndustryEntry, bool) {
	entry, ok := c.industries[NormalizeName(code)]
	return entry, ok
}

func (c *Catalog) Industries() []IndustryEntry {
	out := make([]IndustryEntry, 0, len(c.industries))
	for _, entry := range c.industries {
		out = append(out, entry)
	}
	return out
}

func (c *Catalog) Region(state string) (Region, bool) {
	region, ok := c.regions[NormalizeName(state)]
	return region, ok
}

func (c *Catalog) RegionKeys() []string {
	out := make([]string, len(c.regionOrder))
	copy(out, c.regionOrder)
	return out
}

// OfficeFor returns the local office covering municipality, if any.
func (r Region) OfficeFor(municipality string) (Office, bool) {
	want := NormalizeName(municipality)
	if want == "" {
		return Office{}, false
	}
	for _, office := range r.LocalOffices {
		for _, m := range office.Municipalities {
			if NormalizeName(m) == want {
				return office, true
			}
		}
	}
	return Office{}, false
}

// NormalizeName folds case, accents, punctuation and repeated spaces so that
// "Estado de México", "estado de mexico" and "ESTADO  DE MEXICO." compare equal.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}
