package normalize

import (
	"carpoolcal/internal/config"
	"carpoolcal/internal/ledger"
	appLog "carpoolcal/internal/log"
	"carpoolcal/internal/model"
)

// Failure records one raw event that could not be normalized, tagged with
// the offending title so the report can show what was rejected and why.
type Failure struct {
	Summary string
	Err     error
}

// Normalizer converts raw calendar entries into typed events using the
// configured location sets and trip cost.
type Normalizer struct {
	resolver *Resolver
	tripCost float64
}

// NewNormalizer builds a Normalizer from the application configuration.
func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{
		resolver: NewResolver(cfg.ValidAMLocations, cfg.ValidPMLocations, cfg.UnknownAM, cfg.UnknownPM),
		tripCost: cfg.TripCost,
	}
}

// Events normalizes a batch of raw events into a timestamp-ordered event
// mapping.
//
// The batch is fail-soft: a title that does not parse is logged, collected
// as a Failure and skipped, never aborting the run. The caller gets both
// the usable events and the rejects.
//
// Two raw events with the same start timestamp collapse to the later one
// in input order (last write wins), which is also what lets the ledger
// merge overwrite edited calendar entries.
func (n *Normalizer) Events(raw []model.RawEvent) (*ledger.Ledger, []Failure) {
	out := ledger.New()
	var failures []Failure

	for _, re := range raw {
		topic, err := ParseTopic(re.Summary)
		if err != nil {
			appLog.Error("event normalization failed", err, "summary", re.Summary)
			failures = append(failures, Failure{Summary: re.Summary, Err: err})
			continue
		}

		var ev model.Event
		switch topic.Kind {
		case model.TypeCarpool:
			origin := n.resolver.Resolve(re.Location, re.Start)
			ev = model.NewCarpool(topic.Driver, topic.Passengers, origin, n.tripCost)
		case model.TypeTransfer:
			ev = model.NewTransfer(topic.Debtor, topic.Creditor, topic.Amount)
		}

		out.Set(re.Start, ev)
	}

	appLog.Info("normalization completed", "events", out.Len(), "failures", len(failures))
	return out, failures
}
