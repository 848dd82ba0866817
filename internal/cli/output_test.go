package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
	"github.com/pfrederiksen/trackstats/internal/loader"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

func testSummary() *loader.Summary {
	counts := loader.Counts{Rows: 5, Created: 3, Rejected: 2, AthletesCreated: 3}
	return &loader.Summary{
		RunID:   uuid.MustParse("6f1c1d2e-0000-4000-8000-000000000001"),
		Cleared: "results",
		Meets: []loader.MeetSummary{
			{Name: "Poudre Invitational", Date: "2025-04-12", Sources: 1, Counts: counts},
		},
		Totals: counts,
		Warnings: []loader.Warning{
			{Kind: "unmatched_event", Meet: "Poudre Invitational", Source: "girls.html", Raw: "Hundred Meter Dash", Reason: "no dictionary match", Count: 2},
			{Kind: loader.KindAmbiguousAthlete, Meet: "Poudre Invitational", Source: "girls.html", Index: 4, Raw: "Jane Doe", Reason: "ambiguous athlete", Count: 1},
		},
	}
}

func TestWriteSummary(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:    "summary",
			verbose: false,
			contains: []string{
				"Cleared: results",
				"Run 6f1c1d2e-0000-4000-8000-000000000001",
				"Poudre Invitational",
				"Warnings: 2",
				"unmatched_event: 2",
				"Unmatched events",
				"Hundred Meter Dash",
				"Ambiguous athletes",
				"Jane Doe",
			},
			excludes: []string{"no dictionary match"},
		},
		{
			name:     "verbose",
			verbose:  true,
			contains: []string{"WARNINGS", "no dictionary match", "girls.html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteSummary(&buf, testSummary(), FormatText, tt.verbose); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("output contains %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, testSummary(), FormatJSON, false); err != nil {
		t.Fatal(err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["run_id"] != "6f1c1d2e-0000-4000-8000-000000000001" {
		t.Errorf("run_id = %v", doc["run_id"])
	}
	if events, ok := doc["unmatched_events"].([]interface{}); !ok || len(events) != 1 {
		t.Errorf("unmatched_events = %v", doc["unmatched_events"])
	}
	if names, ok := doc["ambiguous_athletes"].([]interface{}); !ok || len(names) != 1 || names[0] != "Jane Doe" {
		t.Errorf("ambiguous_athletes = %v", doc["ambiguous_athletes"])
	}
	totals := doc["totals"].(map[string]interface{})
	if totals["created"] != float64(3) {
		t.Errorf("totals.created = %v", totals["created"])
	}
}

func TestWriteSummaryNoMeets(t *testing.T) {
	var buf bytes.Buffer
	sum := &loader.Summary{Meets: []loader.MeetSummary{}, Warnings: []loader.Warning{}}
	if err := WriteSummary(&buf, sum, FormatText, false); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "No meets loaded." {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteRows(t *testing.T) {
	grad := 2026
	rows := []aggregate.Row{
		{ResultID: 1, Athlete: "Jane Doe", GradYear: &grad, Gender: "F", Event: "100m", Display: "12.34", Meet: "Poudre Invitational", MeetDate: "2025-04-12", Season: "2025"},
	}

	var buf bytes.Buffer
	if err := WriteRows(&buf, &RowsResult{Title: "Personal Records", Filter: "Genders: F", Rows: rows}, FormatText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Filter: Genders: F", "Personal Records", "Jane Doe", "2026", "12.34", "2025-04-12"} {
		if !strings.Contains(strings.ToLower(out), strings.ToLower(want)) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteRows(&buf, &RowsResult{Title: "Team Bests"}, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	if err := WriteRows(&buf, &RowsResult{Title: "Team Bests"}, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var result RowsResult
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 0 || result.Rows == nil {
		t.Errorf("empty JSON result = %+v", result)
	}
}

func TestWriteCounts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCounts(&buf, storage.Counts{Athletes: 2, Results: 7}, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "relay_members") {
		t.Errorf("output missing table name:\n%s", buf.String())
	}
}

func TestUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, testSummary(), "xml", false); err == nil {
		t.Error("WriteSummary accepted an unknown format")
	}
	if err := WriteRows(&buf, &RowsResult{}, "xml"); err == nil {
		t.Error("WriteRows accepted an unknown format")
	}
	if err := WriteCounts(&buf, storage.Counts{}, "xml"); err == nil {
		t.Error("WriteCounts accepted an unknown format")
	}
}
