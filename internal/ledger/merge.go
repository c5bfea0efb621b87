package ledger

import (
	"time"

	appLog "carpoolcal/internal/log"
)

// Merge folds freshly normalized events into the previously persisted
// ledger under a retention window of retentionDays before now.
//
// Policy:
//   - No previous ledger (first run): the result is exactly newEvents.
//   - All previous entries are carried forward. History older than the
//     window is never re-validated against the feed, since the feed is
//     assumed to no longer contain it.
//   - New events inside the window are added, overwriting any existing
//     entry at the same timestamp: the feed is authoritative for anything
//     it still covers, because calendar entries can be edited upstream.
//   - New events older than the window are dropped as stale feed
//     artifacts. The retention boundary is the single source of truth for
//     what is in scope.
//
// The inputs are not modified; the result is a fresh ledger ordered by
// timestamp.
func Merge(prev, newEvents *Ledger, retentionDays int, now time.Time) *Ledger {
	if prev == nil || prev.Len() == 0 {
		if newEvents == nil {
			return New()
		}
		return newEvents.Clone()
	}

	cutoff := now.AddDate(0, 0, -retentionDays)

	merged := prev.Clone()

	dropped := 0
	if newEvents != nil {
		for _, e := range newEvents.Entries() {
			if e.Start.Before(cutoff) {
				// Stale feed artifact outside the trust window.
				dropped++
				continue
			}
			merged.Set(e.Start, e.Event)
		}
	}

	if dropped > 0 {
		appLog.Info("merge dropped events older than retention window",
			"dropped", dropped, "cutoff", cutoff.Format(time.RFC3339))
	}

	return merged
}
