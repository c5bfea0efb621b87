// Package report renders the outcome of one pipeline run (balances, recent
// trips and diagnostics) into a static HTML file for the group.
package report

import (
	"bytes"
	"errors"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"carpoolcal/internal/ledger"
	appLog "carpoolcal/internal/log"
	"carpoolcal/internal/match"
	"carpoolcal/internal/model"
	"carpoolcal/internal/normalize"
)

// maxTrips bounds the number of recent events shown in the report.
const maxTrips = 50

type balanceRow struct {
	Person  string
	Balance float64
}

type eventRow struct {
	Start       string
	Description string
	Origin      string
	Destination string
}

type failureRow struct {
	Summary string
	Reason  string
}

type data struct {
	GeneratedAt string
	Balances    []balanceRow
	Events      []eventRow
	Unresolved  []match.Unresolved
	Failures    []failureRow
}

// Write renders the run outcome to an HTML file at path. The write is
// atomic (temp file + rename), matching how the ledger itself is stored.
func Write(path string, l *ledger.Ledger, balances map[string]float64, matchReport match.Report, failures []normalize.Failure) error {
	if path == "" {
		return errors.New("report path is empty")
	}

	d := data{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Unresolved:  matchReport.Unresolved,
	}

	persons := make([]string, 0, len(balances))
	for p := range balances {
		persons = append(persons, p)
	}
	sort.Strings(persons)
	for _, p := range persons {
		d.Balances = append(d.Balances, balanceRow{Person: p, Balance: balances[p]})
	}

	entries := l.Entries()
	// Most recent events first.
	for i := len(entries) - 1; i >= 0 && len(d.Events) < maxTrips; i-- {
		d.Events = append(d.Events, makeRow(entries[i]))
	}

	for _, f := range failures {
		d.Failures = append(d.Failures, failureRow{Summary: f.Summary, Reason: f.Err.Error()})
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, d); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".carpoolcal-report-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	appLog.Info("report written", "path", path, "balances", len(d.Balances), "events", len(d.Events))
	return nil
}

func makeRow(e ledger.Entry) eventRow {
	row := eventRow{Start: e.Start.Format("2006-01-02 15:04")}
	ev := e.Event
	switch ev.Type {
	case model.TypeCarpool:
		desc := "carpool " + ev.Driver
		for _, p := range ev.Passengers {
			desc += " + " + p
		}
		row.Description = desc
		row.Origin = ev.Origin
		row.Destination = ev.Destination
		if row.Destination == "" {
			row.Destination = "?"
		}
	case model.TypeTransfer:
		row.Description = "transfer " + ev.Debtor + " → " + ev.Creditor
	}
	return row
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Carpool balances</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: left; }
.neg { color: #a00; }
.pos { color: #070; }
</style>
</head>
<body>
<h1>Carpool balances</h1>
<p>Generated at {{.GeneratedAt}}</p>

<h2>Balances</h2>
<table>
<tr><th>Person</th><th>Balance</th></tr>
{{range .Balances}}<tr><td>{{.Person}}</td><td class="{{if lt .Balance 0.0}}neg{{else}}pos{{end}}">{{printf "%.2f" .Balance}}</td></tr>
{{end}}</table>

<h2>Recent events</h2>
<table>
<tr><th>Start</th><th>Event</th><th>From</th><th>To</th></tr>
{{range .Events}}<tr><td>{{.Start}}</td><td>{{.Description}}</td><td>{{.Origin}}</td><td>{{.Destination}}</td></tr>
{{end}}</table>

{{if .Unresolved}}
<h2>Unresolved destinations</h2>
<table>
<tr><th>Day</th><th>Driver</th><th>Trips</th><th>Reason</th></tr>
{{range .Unresolved}}<tr><td>{{.Day}}</td><td>{{.Driver}}</td><td>{{.Trips}}</td><td>{{.Reason}}</td></tr>
{{end}}</table>
{{end}}

{{if .Failures}}
<h2>Rejected calendar entries</h2>
<table>
<tr><th>Title</th><th>Reason</th></tr>
{{range .Failures}}<tr><td>{{.Summary}}</td><td>{{.Reason}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))
