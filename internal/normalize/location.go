package normalize

import (
	"strings"
	"time"
)

// Resolver maps free-text location strings to the canonical location sets.
// Morning departures (local hour < 12) use the AM set, afternoon
// departures the PM set; each has its own unknown sentinel.
type Resolver struct {
	am []string
	pm []string

	unknownAM string
	unknownPM string
}

// NewResolver builds a Resolver from the ordered canonical sets. Order is
// significant: resolution is first-match-wins in the configured order, not
// best-match.
func NewResolver(am, pm []string, unknownAM, unknownPM string) *Resolver {
	return &Resolver{
		am:        am,
		pm:        pm,
		unknownAM: unknownAM,
		unknownPM: unknownPM,
	}
}

// Resolve returns the first canonical location that occurs as a
// case-insensitive substring of raw, picking the AM or PM set by the local
// hour of start. When nothing matches, the time-of-day sentinel is
// returned; an unresolved location is valid data, not an error.
func (r *Resolver) Resolve(raw string, start time.Time) string {
	valid := r.pm
	unknown := r.unknownPM
	if start.Hour() < 12 {
		valid = r.am
		unknown = r.unknownAM
	}

	loc := strings.ToLower(raw)
	for _, v := range valid {
		if strings.Contains(loc, strings.ToLower(v)) {
			return v
		}
	}
	return unknown
}
