package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
	"github.com/pfrederiksen/trackstats/internal/loader"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// LoadResult is the JSON document written for a load or import run.
type LoadResult struct {
	*loader.Summary
	UnmatchedEvents   []string `json:"unmatched_events"`
	AmbiguousAthletes []string `json:"ambiguous_athletes"`
}

// RowsResult contains the rows of a query command.
type RowsResult struct {
	Title  string          `json:"title"`
	Season string          `json:"season,omitempty"`
	Filter string          `json:"filter,omitempty"`
	Count  int             `json:"count"`
	Rows   []aggregate.Row `json:"rows"`
}

// WriteSummary writes a run summary in the specified format
func WriteSummary(w io.Writer, sum *loader.Summary, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, &LoadResult{
			Summary:           sum,
			UnmatchedEvents:   sum.UnmatchedEvents(),
			AmbiguousAthletes: sum.AmbiguousAthletes(),
		})
	case FormatText:
		return writeSummaryText(w, sum, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteRows writes query rows in the specified format
func WriteRows(w io.Writer, result *RowsResult, format OutputFormat) error {
	if result.Rows == nil {
		result.Rows = []aggregate.Row{}
	}
	result.Count = len(result.Rows)

	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeRowsText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteCounts writes the table row counts in the specified format
func WriteCounts(w io.Writer, counts storage.Counts, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, counts)
	case FormatText:
		t := newTable(w)
		t.AppendHeader(table.Row{"Table", "Rows"})
		t.AppendRows([]table.Row{
			{"athletes", counts.Athletes},
			{"events", counts.Events},
			{"meets", counts.Meets},
			{"results", counts.Results},
			{"relay_members", counts.RelayMembers},
		})
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// rightAlign right-aligns the numbered columns, counted from 1.
func rightAlign(t table.Writer, columns ...int) {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
}

// writeSummaryText outputs a run summary as human-readable tables
func writeSummaryText(w io.Writer, sum *loader.Summary, verbose bool) error {
	if sum.Cleared != "" {
		fmt.Fprintf(w, "Cleared: %s\n", sum.Cleared)
	}

	if len(sum.Meets) == 0 {
		fmt.Fprintln(w, "No meets loaded.")
	} else {
		t := newTable(w)
		t.SetTitle("Run " + sum.RunID.String())
		t.AppendHeader(table.Row{"Meet", "Date", "Rows", "Created", "Skipped", "Replaced", "Rejected", "Athletes"})
		for _, m := range sum.Meets {
			t.AppendRow(table.Row{m.Name, m.Date, m.Rows, m.Created, m.Skipped, m.Replaced, m.Rejected, m.AthletesCreated})
		}
		tot := sum.Totals
		t.AppendFooter(table.Row{"Total", strconv.Itoa(len(sum.Meets)) + " meets", tot.Rows, tot.Created, tot.Skipped, tot.Replaced, tot.Rejected, tot.AthletesCreated})
		rightAlign(t, 3, 4, 5, 6, 7, 8)
		t.Render()
	}

	if !sum.HasWarnings() {
		return nil
	}

	if verbose {
		t := newTable(w)
		t.SetTitle("Warnings")
		t.AppendHeader(table.Row{"Kind", "Meet", "Source", "Row", "Raw", "Reason", "Count"})
		for _, wn := range sum.Warnings {
			t.AppendRow(table.Row{wn.Kind, wn.Meet, wn.Source, wn.Index, wn.Raw, wn.Reason, wn.Count})
		}
		rightAlign(t, 4, 7)
		t.Render()
	} else {
		byKind := make(map[string]int)
		for _, wn := range sum.Warnings {
			byKind[wn.Kind] += wn.Count
		}
		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		fmt.Fprintf(w, "\nWarnings: %d\n", len(sum.Warnings))
		for _, k := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", k, byKind[k])
		}
	}

	if events := sum.UnmatchedEvents(); len(events) > 0 {
		fmt.Fprintln(w, "\nUnmatched events (add aliases to the event dictionary):")
		for _, e := range events {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	if names := sum.AmbiguousAthletes(); len(names) > 0 {
		fmt.Fprintln(w, "\nAmbiguous athletes (add a graduation year or a name mapping):")
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	return nil
}

// writeRowsText outputs query rows as a table
func writeRowsText(w io.Writer, result *RowsResult) error {
	if result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", result.Filter)
	}
	if len(result.Rows) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	t := newTable(w)
	t.SetTitle(result.Title)
	t.AppendHeader(table.Row{"Season", "Gender", "Event", "Athlete", "Grad", "Mark", "Meet", "Date"})
	for _, r := range result.Rows {
		grad := ""
		if r.GradYear != nil {
			grad = strconv.Itoa(*r.GradYear)
		}
		t.AppendRow(table.Row{r.Season, r.Gender, r.Event, r.Athlete, grad, r.Display, r.Meet, r.MeetDate})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(result.Rows)})
	rightAlign(t, 6)
	t.Render()
	return nil
}
