package ledger

import (
	"reflect"
	"testing"
	"time"

	"carpoolcal/internal/model"
)

var mergeNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

const retention = 30

func daysAgo(n int) time.Time {
	return mergeNow.AddDate(0, 0, -n)
}

func TestMergeFirstRun(t *testing.T) {
	fresh := New()
	fresh.Set(daysAgo(1), carpool("peter", "everdingen"))
	fresh.Set(daysAgo(2), carpool("peter", "houten"))

	for _, prev := range []*Ledger{nil, New()} {
		merged := Merge(prev, fresh, retention, mergeNow)
		if !reflect.DeepEqual(merged.Entries(), fresh.Entries()) {
			t.Errorf("first-run merge with prev=%v differs from new events", prev)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	prev := New()
	prev.Set(daysAgo(40), carpool("peter", "everdingen"))
	prev.Set(daysAgo(5), carpool("peter", "houten"))

	fresh := New()
	fresh.Set(daysAgo(5), carpool("peter", "nieuwegein"))
	fresh.Set(daysAgo(1), carpool("martin", "everdingen"))

	once := Merge(prev, fresh, retention, mergeNow)
	twice := Merge(once, fresh, retention, mergeNow)

	if !reflect.DeepEqual(once.Entries(), twice.Entries()) {
		t.Errorf("merging the same events twice changed the ledger:\nonce:  %+v\ntwice: %+v",
			once.Entries(), twice.Entries())
	}
}

func TestMergeRetentionBoundary(t *testing.T) {
	prev := New()
	prev.Set(daysAgo(retention), carpool("peter", "everdingen"))    // exactly at the boundary
	prev.Set(daysAgo(retention+1), carpool("peter", "houten"))      // one day further back
	prev.Set(daysAgo(retention+99), carpool("peter", "nieuwegein")) // ancient

	merged := Merge(prev, New(), retention, mergeNow)

	// Old history is never dropped, whether inside or outside the window.
	for _, n := range []int{retention, retention + 1, retention + 99} {
		if _, ok := merged.Get(daysAgo(n)); !ok {
			t.Errorf("previous event %d days ago missing after merge", n)
		}
	}
}

func TestMergeDropsStaleNewEvents(t *testing.T) {
	prev := New()
	prev.Set(daysAgo(3), carpool("peter", "everdingen"))

	fresh := New()
	// One event exactly at the boundary (still trusted), one a second older
	// (stale feed artifact).
	fresh.Set(daysAgo(retention), carpool("martin", "houten"))
	fresh.Set(daysAgo(retention).Add(-time.Second), carpool("martin", "nieuwegein"))

	merged := Merge(prev, fresh, retention, mergeNow)

	if _, ok := merged.Get(daysAgo(retention)); !ok {
		t.Error("new event exactly at the retention boundary was dropped")
	}
	if _, ok := merged.Get(daysAgo(retention).Add(-time.Second)); ok {
		t.Error("new event older than the retention window was kept")
	}
	if merged.Len() != 2 {
		t.Errorf("merged.Len() = %d, want 2", merged.Len())
	}
}

func TestMergeOverwritesInsideWindow(t *testing.T) {
	edited := daysAgo(4)

	prev := New()
	prev.Set(edited, carpool("peter", "everdingen"))

	fresh := New()
	fresh.Set(edited, model.NewCarpool("peter", []string{"martin", "wolfgang"}, "houten", 16))

	merged := Merge(prev, fresh, retention, mergeNow)

	ev, ok := merged.Get(edited)
	if !ok {
		t.Fatal("edited event missing after merge")
	}
	if ev.Origin != "houten" || len(ev.Passengers) != 2 {
		t.Errorf("merged event = %+v, want the feed's edited version", ev)
	}
}

func TestMergeResultOrdered(t *testing.T) {
	prev := New()
	prev.Set(daysAgo(50), carpool("peter", "everdingen"))
	prev.Set(daysAgo(10), carpool("peter", "houten"))

	fresh := New()
	fresh.Set(daysAgo(20), carpool("martin", "nieuwegein"))
	fresh.Set(daysAgo(1), carpool("martin", "everdingen"))

	merged := Merge(prev, fresh, retention, mergeNow)

	entries := merged.Entries()
	for i := 1; i < len(entries); i++ {
		if !entries[i-1].Start.Before(entries[i].Start) {
			t.Fatalf("merged entries out of order at %d", i)
		}
	}
}
