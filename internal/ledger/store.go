package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	appLog "carpoolcal/internal/log"
	"carpoolcal/internal/model"
)

// storedEvent is the on-disk shape of one ledger entry. The persisted
// ledger is a JSON object keyed by RFC3339 timestamp (with UTC offset),
// each value carrying a type discriminator plus the fields of that type.
type storedEvent struct {
	Type string `json:"type"`

	Driver      string   `json:"driver,omitempty"`
	Passengers  []string `json:"passengers,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	Destination string   `json:"destination,omitempty"`
	TripCost    float64  `json:"trip_cost,omitempty"`

	Debtor   string  `json:"debtor,omitempty"`
	Creditor string  `json:"creditor,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// Load reads the persisted ledger from path.
//
// A missing file is the expected cold-start condition and yields an empty
// ledger with ok=false (first-run semantics). A file that exists but cannot
// be read or parsed is damaged durable state and is a hard error; it must
// never be silently discarded.
//
// JSON object key order is not trusted: entries are re-sorted by timestamp
// on load.
func Load(path string) (*Ledger, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("no previous ledger, starting fresh", "path", path)
			return New(), false, nil
		}
		return nil, false, fmt.Errorf("read ledger %s: %w", path, err)
	}

	var raw map[string]storedEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("corrupt ledger %s: %w", path, err)
	}

	l := New()
	for key, se := range raw {
		ts, err := time.Parse(time.RFC3339, key)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt ledger %s: bad timestamp key %q: %w", path, key, err)
		}

		var ev model.Event
		switch se.Type {
		case string(model.TypeCarpool):
			ev = model.NewCarpool(se.Driver, se.Passengers, se.Origin, se.TripCost)
			ev.Destination = se.Destination
		case string(model.TypeTransfer):
			ev = model.NewTransfer(se.Debtor, se.Creditor, se.Amount)
		default:
			return nil, false, fmt.Errorf("corrupt ledger %s: unknown event type %q at %q", path, se.Type, key)
		}

		l.Set(ts, ev)
	}

	appLog.Info("ledger loaded", "path", path, "entries", l.Len())
	return l, true, nil
}

// Store writes the ledger to path as JSON, atomically (temp file + rename)
// so a failed run never leaves a partially written ledger behind.
func Store(path string, l *Ledger) error {
	if path == "" {
		return errors.New("ledger path is empty")
	}

	raw := make(map[string]storedEvent, l.Len())
	for _, e := range l.Entries() {
		ev := e.Event
		se := storedEvent{Type: string(ev.Type)}
		switch ev.Type {
		case model.TypeCarpool:
			se.Driver = ev.Driver
			se.Passengers = ev.Passengers
			se.Origin = ev.Origin
			se.Destination = ev.Destination
			se.TripCost = ev.TripCost
		case model.TypeTransfer:
			se.Debtor = ev.Debtor
			se.Creditor = ev.Creditor
			se.Amount = ev.Amount
		default:
			return fmt.Errorf("store ledger: unknown event type %q", ev.Type)
		}
		raw[e.Start.Format(time.RFC3339)] = se
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".carpoolcal-ledger-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	appLog.Info("ledger stored", "path", path, "entries", l.Len())
	return nil
}
