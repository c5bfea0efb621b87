package model

import "time"

// RawEvent is one calendar entry as delivered by the ICS layer, after
// cancelled/transparent filtering and recurrence expansion. Start is
// already converted into the configured timezone.
type RawEvent struct {
	Summary  string
	Location string
	Start    time.Time
}
