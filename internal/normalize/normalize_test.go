package normalize

import (
	"errors"
	"testing"
	"time"

	"carpoolcal/internal/config"
	"carpoolcal/internal/model"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		ValidAMLocations: []string{"everdingen", "nieuwegein", "houten"},
		ValidPMLocations: []string{"b7"},
		UnknownAM:        "UNKNOWN-EVERDINGEN",
		UnknownPM:        "UNKNOWN-B7",
		TripCost:         16,
	}
	return cfg
}

func TestEventsFailSoft(t *testing.T) {
	n := NewNormalizer(testConfig())

	raw := []model.RawEvent{
		{Summary: "Carpool Peter + Martin", Location: "Everdingen", Start: at(7, 30)},
		{Summary: "Meeting with Peter", Location: "office", Start: at(9, 0)},
		{Summary: "Transfer Martin Peter 8", Start: at(10, 0)},
		{Summary: "carpool", Start: at(11, 0)},
	}

	events, failures := n.Events(raw)

	if events.Len() != 2 {
		t.Fatalf("events.Len() = %d, want 2", events.Len())
	}
	if len(failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(failures))
	}

	// Failures keep the offending title and a typed reason.
	if failures[0].Summary != "Meeting with Peter" || !errors.Is(failures[0].Err, ErrUnrecognizedEventType) {
		t.Errorf("failure[0] = %q / %v", failures[0].Summary, failures[0].Err)
	}
	if failures[1].Summary != "carpool" || !errors.Is(failures[1].Err, ErrMalformedCarpoolSyntax) {
		t.Errorf("failure[1] = %q / %v", failures[1].Summary, failures[1].Err)
	}

	ev, ok := events.Get(at(7, 30))
	if !ok {
		t.Fatal("carpool event missing")
	}
	if ev.Type != model.TypeCarpool || ev.Driver != "peter" || ev.Origin != "everdingen" {
		t.Errorf("carpool = %+v", ev)
	}
	if ev.TripCost != 16 {
		t.Errorf("trip cost = %v, want configured 16", ev.TripCost)
	}
	if ev.Destination != "" {
		t.Errorf("destination = %q, want unset before matching", ev.Destination)
	}

	tr, ok := events.Get(at(10, 0))
	if !ok {
		t.Fatal("transfer event missing")
	}
	if tr.Type != model.TypeTransfer || tr.Debtor != "martin" || tr.Creditor != "peter" || tr.Amount != 8 {
		t.Errorf("transfer = %+v", tr)
	}
}

func TestEventsUnresolvedOrigin(t *testing.T) {
	n := NewNormalizer(testConfig())

	events, failures := n.Events([]model.RawEvent{
		{Summary: "carpool peter", Location: "nowhere special", Start: at(17, 0)},
	})
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none (unknown location is data, not error)", failures)
	}
	ev, _ := events.Get(at(17, 0))
	if ev.Origin != "UNKNOWN-B7" {
		t.Errorf("origin = %q, want UNKNOWN-B7", ev.Origin)
	}
}

func TestEventsDuplicateTimestampLastWins(t *testing.T) {
	n := NewNormalizer(testConfig())
	ts := time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC)

	events, _ := n.Events([]model.RawEvent{
		{Summary: "carpool peter", Location: "Everdingen", Start: ts},
		{Summary: "carpool martin", Location: "Houten", Start: ts},
	})

	if events.Len() != 1 {
		t.Fatalf("events.Len() = %d, want 1", events.Len())
	}
	ev, _ := events.Get(ts)
	if ev.Driver != "martin" {
		t.Errorf("driver = %q, want martin (later event overwrites)", ev.Driver)
	}
}
