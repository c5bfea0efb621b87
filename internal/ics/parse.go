// Package ics ingests the carpool calendar feed: fetching the ICS payload
// with HTTP caching, parsing VEVENTs, and expanding recurring trips into
// concrete dated events.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "carpoolcal/internal/log"
)

// ParsedEvent is one VEVENT from the feed before recurrence expansion.
type ParsedEvent struct {
	UID      string
	Summary  string
	Location string

	// Start is the event start converted into the configured timezone.
	Start time.Time

	// RawRRule carries the recurrence rule, if any; expansion happens in
	// expand.go. ExDates are excluded instances.
	RawRRule string
	ExDates  []time.Time
}

// Parse parses an ICS payload into a list of ParsedEvent, normalizing
// start times into loc.
//
// Cancelled events (STATUS:CANCELLED) and transparent ones
// (TRANSP:TRANSPARENT, how the upstream calendar marks removed carpool
// slots) are dropped here, so downstream only ever sees real events.
// A VEVENT that fails to parse is logged and skipped; the rest of the
// feed is still used.
func Parse(body []byte, loc *time.Location) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]ParsedEvent, 0)

	for _, ve := range cal.Events() {
		if skipVEvent(ve) {
			continue
		}
		ev, perr := parseVEvent(ve, loc)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "uid", veUID(ve))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

// skipVEvent reports whether the event is cancelled or transparent.
// Raw property names are used to avoid depending on constant variants.
func skipVEvent(ve *ical.VEvent) bool {
	if p := ve.GetProperty("STATUS"); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return true
	}
	if p := ve.GetProperty("TRANSP"); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		return true
	}
	return false
}

func veUID(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent

	uid := veUID(ve)
	if uid == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// DTSTART via the library's timezone-aware helper.
	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start.In(loc)

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE may appear multiple times, each with a comma-separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// parseICSTime parses a basic ICS date or date-time string. This is a
// simplified helper for EXDATE values where full parameter context is not
// available.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Local date-time, e.g. 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	// Date only, e.g. 20250101
	return time.ParseInLocation("20060102", v, loc)
}
