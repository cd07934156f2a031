// Package catalog loads the jurisdiction catalog and the holiday calendar from
// YAML. Both are versioned artifacts read once at process start.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

//go:embed data/*.yaml
var embedded embed.FS

const (
	defaultCatalogFile  = "data/catalog.yaml"
	defaultHolidaysFile = "data/holidays.yaml"
)

type catalogFile struct {
	Version        string                 `yaml:"version"`
	FederalDefault domain.Venue           `yaml:"federal_default"`
	Industries     []domain.IndustryEntry `yaml:"industries"`
	Regions        []domain.Region        `yaml:"regions"`
}

type holidaysFile struct {
	Timezone string   `yaml:"timezone"`
	Holidays []string `yaml:"holidays"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*domain.Catalog, error) {
	data, err := readSource(path, defaultCatalogFile)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*domain.Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return domain.NewCatalog(file.Version, file.FederalDefault, file.Industries, file.Regions), nil
}

func (f catalogFile) validate() error {
	if strings.TrimSpace(f.Version) == "" {
		return fmt.Errorf("version is required")
	}
	if f.FederalDefault.IsZero() {
		return fmt.Errorf("federal_default venue is required")
	}

	codes := make(map[string]struct{}, len(f.Industries))
	for _, entry := range f.Industries {
		key := domain.NormalizeName(entry.Code)
		if key == "" {
			return fmt.Errorf("industry %q has no code", entry.Name)
		}
		if _, dup := codes[key]; dup {
			return fmt.Errorf("duplicate industry code %q", entry.Code)
		}
		codes[key] = struct{}{}
	}

	names := make(map[string]string)
	for _, region := range f.Regions {
		if strings.TrimSpace(region.Key) == "" {
			return fmt.Errorf("region %q has no key", region.Name)
		}
		if region.LocalVenue.IsZero() {
			return fmt.Errorf("region %s has no local venue", region.Key)
		}
		if region.FederalOffice != nil && region.FederalOffice.IsZero() {
			return fmt.Errorf("region %s federal office has no id", region.Key)
		}
		lookups := append([]string{region.Key, region.Name}, region.Aliases...)
		for _, name := range lookups {
			key := domain.NormalizeName(name)
			if key == "" {
				continue
			}
			if owner, taken := names[key]; taken && owner != region.Key {
				return fmt.Errorf("name %q maps to both %s and %s", name, owner, region.Key)
			}
			names[key] = region.Key
		}
	}
	return nil
}

// LoadCalendar reads the holiday file at path, or the embedded default when path is empty.
func LoadCalendar(path string) (*domain.BusinessCalendar, error) {
	data, err := readSource(path, defaultHolidaysFile)
	if err != nil {
		return nil, fmt.Errorf("read holidays: %w", err)
	}
	return ParseCalendar(data)
}

func ParseCalendar(data []byte) (*domain.BusinessCalendar, error) {
	var file holidaysFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode holidays yaml: %w", err)
	}

	loc := time.UTC
	if tz := strings.TrimSpace(file.Timezone); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}

	days := make([]time.Time, 0, len(file.Holidays))
	for _, raw := range file.Holidays {
		day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), loc)
		if err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", raw, err)
		}
		days = append(days, day)
	}
	return domain.NewBusinessCalendar(loc, days), nil
}

func readSource(path, fallback string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return embedded.ReadFile(fallback)
	}
	return os.ReadFile(path)
}
