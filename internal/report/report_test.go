package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"carpoolcal/internal/ledger"
	"carpoolcal/internal/match"
	"carpoolcal/internal/model"
	"carpoolcal/internal/normalize"
)

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")

	l := ledger.New()
	trip := model.NewCarpool("peter", []string{"martin"}, "nieuwegein", 16)
	trip.Destination = "houten"
	l.Set(time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC), trip)
	l.Set(time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC), model.NewTransfer("martin", "peter", 8))

	balances := map[string]float64{"peter": 8, "martin": -8}
	matchReport := match.Report{
		Unresolved: []match.Unresolved{
			{Driver: "wolfgang", Day: "2026-08-20", Trips: 1, Reason: match.ReasonSingleLeg},
		},
		Missing: 1,
	}
	failures := []normalize.Failure{
		{Summary: "Meeting with Peter", Err: normalize.ErrUnrecognizedEventType},
	}

	if err := Write(path, l, balances, matchReport, failures); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"peter", "martin", "8.00", "-8.00",
		"nieuwegein", "houten",
		"wolfgang", "single-leg",
		"Meeting with Peter", "unrecognized event type",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteEmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")

	if err := Write(path, ledger.New(), nil, match.Report{}, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report not written: %v", err)
	}
}
