package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "carpoolcal/internal/log"
	"carpoolcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the timezone occurrences are converted into.
	// If nil, time.Local is used.
	Location *time.Location

	// RangeStart / RangeEnd bound the inclusive occurrence window.
	// Typically the retention window into the past and the configured
	// horizon into the future.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion of a single rule. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// Expand turns parsed feed events into concrete raw events within the
// configured range. Weekly carpool schedules carry an RRULE; each
// occurrence becomes its own raw event with the rule's summary and
// location. Non-recurring events pass through when they fall inside the
// range. EXDATEs remove cancelled instances.
//
// The result is sorted by start time.
func Expand(events []ParsedEvent, cfg ExpandConfig) ([]model.RawEvent, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.RawEvent, 0, len(events))

	for _, ev := range events {
		if ev.RawRRule == "" {
			if inRange(ev.Start, cfg.RangeStart, cfg.RangeEnd) {
				out = append(out, model.RawEvent{
					Summary:  ev.Summary,
					Location: ev.Location,
					Start:    ev.Start.In(cfg.Location),
				})
			}
			continue
		}
		out = append(out, expandRecurring(ev, cfg)...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })

	return out, nil
}

func expandRecurring(ev ParsedEvent, cfg ExpandConfig) []model.RawEvent {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		// Align EXDATE location with the event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between operates in the event's own location.
	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		appLog.Info("expand: occurrence cap hit", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
	}

	out := make([]model.RawEvent, 0, len(occTimes))
	for _, occ := range occTimes {
		out = append(out, model.RawEvent{
			Summary:  ev.Summary,
			Location: ev.Location,
			Start:    occ.In(cfg.Location),
		})
	}
	return out
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
