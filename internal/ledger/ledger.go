// Package ledger holds the durable, timestamp-ordered collection of carpool
// and transfer events, the retention-window merge that folds a fresh feed
// into persisted history, and the balance reduction derived from it.
package ledger

import (
	"sort"
	"time"

	"carpoolcal/internal/model"
)

// Entry pairs an event with its start timestamp, which is also its identity
// within the ledger.
type Entry struct {
	Start time.Time
	Event model.Event
}

// Ledger is an ordered mapping from start timestamp to event, kept sorted by
// timestamp ascending. Setting an entry with an existing timestamp
// overwrites the previous event (last write wins).
//
// A single run owns its Ledger; the type is not safe for concurrent use.
type Ledger struct {
	entries []Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// search returns the position of ts in the sorted entry slice, and whether
// an entry with exactly that timestamp exists there.
func (l *Ledger) search(ts time.Time) (int, bool) {
	i := sort.Search(len(l.entries), func(i int) bool {
		return !l.entries[i].Start.Before(ts)
	})
	if i < len(l.entries) && l.entries[i].Start.Equal(ts) {
		return i, true
	}
	return i, false
}

// Set inserts the event at ts, overwriting any existing entry with the same
// timestamp. Ordering by timestamp is preserved.
func (l *Ledger) Set(ts time.Time, ev model.Event) {
	i, ok := l.search(ts)
	if ok {
		l.entries[i].Event = ev
		return
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = Entry{Start: ts, Event: ev}
}

// Get returns the event stored at ts, if any.
func (l *Ledger) Get(ts time.Time) (model.Event, bool) {
	i, ok := l.search(ts)
	if !ok {
		return model.Event{}, false
	}
	return l.entries[i].Event, true
}

// Entries returns the ledger's backing slice, ordered by timestamp
// ascending. Mutating an element's Event mutates the ledger; this is how
// the destination matcher writes inferred destinations back.
func (l *Ledger) Entries() []Entry {
	return l.entries
}

// Clone returns a deep-enough copy: the entry slice is copied, events are
// value types (passenger slices are shared, but never mutated in place).
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{entries: make([]Entry, len(l.entries))}
	copy(out.entries, l.entries)
	return out
}
