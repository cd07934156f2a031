package domain

import (
	"strings"
	"time"
)

// ProxyResource is a region-scoped egress identity. It is provisioned out of
// band; the allocator only reads it and bumps usage.
type ProxyResource struct {
	ID             string     `json:"id"`
	RegionKey      string     `json:"region_key"`
	Endpoint       string     `json:"endpoint"`
	UsageCount     int64      `json:"usage_count"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	LastAcquiredAt *time.Time `json:"last_acquired_at,omitempty"`
	Available      bool       `json:"available"`
}

// EligibleFor reports whether the resource may serve a filing in region.
func (p ProxyResource) EligibleFor(regionKey string) bool {
	return p.Available && SameRegionKey(p.RegionKey, regionKey)
}

// SameRegionKey compares region keys case-insensitively and nothing more. It is
// the Go side of the stores' lower(region_key) = lower($1) predicate; accents and
// punctuation are significant in keys, unlike in free-text place names.
func SameRegionKey(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

// LessUsedThan orders resources by usage count, then oldest last use (never
// used first), then oldest acquisition.
func (p ProxyResource) LessUsedThan(other ProxyResource) bool {
	if p.UsageCount != other.UsageCount {
		return p.UsageCount < other.UsageCount
	}
	if c := compareOptionalTime(p.LastUsedAt, other.LastUsedAt); c != 0 {
		return c < 0
	}
	if c := compareOptionalTime(p.LastAcquiredAt, other.LastAcquiredAt); c != 0 {
		return c < 0
	}
	return p.ID < other.ID
}

func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}
