package model

// EventType discriminates the two kinds of ledger entries.
type EventType string

const (
	TypeCarpool  EventType = "carpool"
	TypeTransfer EventType = "transfer"
)

// Event is a single normalized calendar entry: either a carpool trip or a
// manual balance transfer between two people. Which fields are meaningful
// depends on Type; the zero value of the other group is left untouched.
//
// Name tokens (Driver, Passengers, Debtor, Creditor) are lowercase and
// alphanumeric only; the parser guarantees this. The driver is never also
// listed among the passengers of the same event.
type Event struct {
	Type EventType

	// Carpool fields.
	//
	// Origin is always a member of the canonical location set for the
	// event's time of day, or the configured unknown-AM/unknown-PM
	// sentinel. Destination is empty until destination matching has run,
	// and may stay empty when the day's trips do not form a round trip.
	Driver      string
	Passengers  []string
	Origin      string
	Destination string
	TripCost    float64

	// Transfer fields.
	Debtor   string
	Creditor string
	Amount   float64
}

// NewCarpool builds a carpool event with an unresolved destination.
func NewCarpool(driver string, passengers []string, origin string, tripCost float64) Event {
	return Event{
		Type:       TypeCarpool,
		Driver:     driver,
		Passengers: passengers,
		Origin:     origin,
		TripCost:   tripCost,
	}
}

// NewTransfer builds a manual transfer event: debtor pays creditor.
func NewTransfer(debtor, creditor string, amount float64) Event {
	return Event{
		Type:     TypeTransfer,
		Debtor:   debtor,
		Creditor: creditor,
		Amount:   amount,
	}
}
