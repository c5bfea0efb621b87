// Package match infers trip destinations by pairing same-day departures of
// the same driver. A driver typically departs from location X in the
// morning and from location Y in the afternoon, which means the trips were
// X→Y and Y→X; the matcher turns that pattern into destination fields.
package match

import (
	"sort"
	"time"

	"carpoolcal/internal/ledger"
	appLog "carpoolcal/internal/log"
	"carpoolcal/internal/model"
)

// Reason classifies why a driver-day group could not be paired.
type Reason string

const (
	// ReasonSingleLeg: only one trip that day, nothing to pair against.
	ReasonSingleLeg Reason = "single-leg"
	// ReasonOverCount: more than two trips that day; the round-trip
	// assumption does not hold. This is a data-entry anomaly in the feed.
	ReasonOverCount Reason = "over-count"
)

// Unresolved describes one driver-day group whose trips were left without
// a destination.
type Unresolved struct {
	Driver string
	Day    string // local date, YYYY-MM-DD
	Trips  int
	Reason Reason
}

// Report summarizes a matching pass.
type Report struct {
	// Unresolved lists the driver-day groups that could not be paired,
	// in chronological order, ties broken by driver name.
	Unresolved []Unresolved
	// Missing is the number of carpool events still lacking a
	// destination after the pass.
	Missing int
}

// Resolved reports whether every carpool event received a destination.
func (r Report) Resolved() bool {
	return r.Missing == 0
}

const dayFormat = "2006-01-02"

// Destinations pairs each driver's same-day trips and writes the inferred
// destinations back into the ledger's carpool events: within one local
// calendar day, a driver with exactly two trips is assumed to have made a
// round trip, so the first trip's destination is the second trip's origin
// and vice versa.
//
// Groups of one (single leg) or more than two trips are reported and left
// untouched; no repair heuristic is applied to ambiguous data. Events from
// different days or different drivers are never paired. The result is
// deterministic: events are processed in timestamp order and driver groups
// in name order.
func Destinations(l *ledger.Ledger) Report {
	var report Report

	entries := l.Entries()

	// Arena of carpool positions, in timestamp order. Results are written
	// back through these indices only.
	arena := make([]int, 0, len(entries))
	for i := range entries {
		if entries[i].Event.Type == model.TypeCarpool {
			arena = append(arena, i)
		}
	}
	if len(arena) == 0 {
		return report
	}

	// Bucket trips by local calendar day.
	byDay := make(map[string][]int, len(arena))
	for _, i := range arena {
		day := entries[i].Start.Format(dayFormat)
		byDay[day] = append(byDay[day], i)
	}

	// Walk one day before the earliest trip through one day after the
	// latest, so trips at the partition boundaries are still considered.
	first := entries[arena[0]].Start
	last := entries[arena[len(arena)-1]].Start
	firstDay := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, last.Location())

	for day := firstDay.AddDate(0, 0, -1); !day.After(lastDay.AddDate(0, 0, 1)); day = day.AddDate(0, 0, 1) {
		bucket := byDay[day.Format(dayFormat)]
		if len(bucket) == 0 {
			continue
		}
		report.matchDay(entries, day.Format(dayFormat), bucket)
	}

	for _, i := range arena {
		if entries[i].Event.Destination == "" {
			report.Missing++
		}
	}

	if report.Resolved() {
		appLog.Info("destination matching resolved all trips", "trips", len(arena))
	} else {
		appLog.Info("destination matching left trips unresolved",
			"trips", len(arena), "missing", report.Missing, "groups", len(report.Unresolved))
	}

	return report
}

// matchDay pairs the trips of one day bucket per driver. The bucket holds
// entry indices in ascending timestamp order.
func (r *Report) matchDay(entries []ledger.Entry, day string, bucket []int) {
	byDriver := make(map[string][]int)
	for _, i := range bucket {
		d := entries[i].Event.Driver
		byDriver[d] = append(byDriver[d], i)
	}

	drivers := make([]string, 0, len(byDriver))
	for d := range byDriver {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)

	for _, d := range drivers {
		trips := byDriver[d]
		switch {
		case len(trips) == 2:
			// Round trip: outbound and return in chronological order.
			out, ret := trips[0], trips[1]
			entries[out].Event.Destination = entries[ret].Event.Origin
			entries[ret].Event.Destination = entries[out].Event.Origin
		case len(trips) == 1:
			r.Unresolved = append(r.Unresolved, Unresolved{
				Driver: d, Day: day, Trips: 1, Reason: ReasonSingleLeg,
			})
		default:
			appLog.Info("driver has more than two trips in one day",
				"driver", d, "day", day, "trips", len(trips))
			r.Unresolved = append(r.Unresolved, Unresolved{
				Driver: d, Day: day, Trips: len(trips), Reason: ReasonOverCount,
			})
		}
	}
}
