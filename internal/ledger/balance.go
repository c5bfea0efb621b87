package ledger

import "carpoolcal/internal/model"

// Balances reduces the ledger to a per-person running total. Positive means
// the group owes that person, negative means they owe the group.
//
// For a carpool trip the cost is split equally over driver plus passengers:
// the driver is credited everything except their own share, each passenger
// is debited one share. A transfer credits the creditor and debits the
// debtor. Division is plain float64; no rounding or remainder
// redistribution is applied.
//
// Only people appearing in the ledger get an entry. The result is a
// disposable snapshot, recomputed in full from the ledger on every run.
func Balances(l *Ledger) map[string]float64 {
	balances := make(map[string]float64)

	for _, e := range l.Entries() {
		ev := e.Event
		switch ev.Type {
		case model.TypeCarpool:
			n := float64(1 + len(ev.Passengers))
			share := ev.TripCost / n
			balances[ev.Driver] += ev.TripCost - share
			for _, p := range ev.Passengers {
				balances[p] -= share
			}
		case model.TypeTransfer:
			balances[ev.Creditor] += ev.Amount
			balances[ev.Debtor] -= ev.Amount
		}
	}

	return balances
}
