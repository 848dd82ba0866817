// Package records imports historical school records.
//
// A records document lists the standing school record of each event, per
// gender. Every record becomes a first place result at a virtual meet named
// after the record's location and dated January 1 of its year, so records
// take part in personal records and team bests like any other result.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/loader"
	"github.com/pfrederiksen/trackstats/internal/mark"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/normalize"
)

// Record is one school record as published.
type Record struct {
	Event        string   `json:"event"`
	Athlete      string   `json:"athlete"`
	Mark         *float64 `json:"mark"`
	MarkDisplay  string   `json:"mark_display"`
	Location     string   `json:"location"`
	Year         *int     `json:"year"`
	IsRelay      bool     `json:"is_relay"`
	RelayMembers []string `json:"relay_members"`
}

// File is a records document.
type File struct {
	Boys       []Record `json:"boys"`
	Girls      []Record `json:"girls"`
	TotalCount int      `json:"total_count,omitempty"`
}

// Read decodes the records document at path.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	defer f.Close() // nolint:errcheck

	return Decode(f)
}

// Decode reads a records document.
func Decode(r io.Reader) (*File, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return &file, nil
}

// Encode writes file as an indented records document.
func Encode(w io.Writer, file *File) error {
	file.TotalCount = len(file.Boys) + len(file.Girls)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(file)
}

// Notes returns the result note of a record from year.
func Notes(year int) string {
	return "School Record as of " + strconv.Itoa(year)
}

// Build turns the records into one batch per virtual meet, ordered by date
// and name. Records that cannot be mapped come back as warnings.
func Build(file *File, events *dictionary.Events) ([]loader.Batch, []loader.Warning) {
	var (
		warnings []loader.Warning
		byMeet   = make(map[string]*loader.Batch)
	)

	add := func(gender string, list []Record) {
		for i, rec := range list {
			res, info, w := build(i, gender, rec, events)
			if w != nil {
				warnings = append(warnings, *w)
				continue
			}
			key := info.Name + "\x00" + info.Date
			b, ok := byMeet[key]
			if !ok {
				b = &loader.Batch{Meet: info, Results: []normalize.Result{}}
				byMeet[key] = b
			}
			b.Results = append(b.Results, res)
		}
	}
	add("M", file.Boys)
	add("F", file.Girls)

	batches := make([]loader.Batch, 0, len(byMeet))
	for _, b := range byMeet {
		batches = append(batches, *b)
	}
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].Meet.Date != batches[j].Meet.Date {
			return batches[i].Meet.Date < batches[j].Meet.Date
		}
		return batches[i].Meet.Name < batches[j].Meet.Name
	})
	return batches, warnings
}

func build(index int, gender string, rec Record, events *dictionary.Events) (normalize.Result, meet.Info, *loader.Warning) {
	warn := func(kind, raw, reason string) (normalize.Result, meet.Info, *loader.Warning) {
		return normalize.Result{}, meet.Info{}, &loader.Warning{
			Kind: kind, Meet: rec.Location, Index: index, Raw: raw, Reason: reason, Count: 1,
		}
	}

	ev, ok := events.Match(rec.Event, gender)
	if !ok {
		return warn(string(normalize.UnmatchedEvent), rec.Event, fmt.Sprintf("event %q is not in the dictionary", rec.Event))
	}
	if rec.Year == nil || *rec.Year <= 0 {
		return warn(loader.KindRejectedRow, rec.Event, "record has no year")
	}
	if rec.Location == "" {
		return warn(loader.KindRejectedRow, rec.Event, "record has no location")
	}
	year := *rec.Year

	kind := mark.Measured
	if ev.Timed {
		kind = mark.Timed
	}
	m, err := mark.Parse(rec.MarkDisplay, kind)
	if err != nil {
		if rec.Mark == nil {
			return warn(string(normalize.InvalidMark), rec.MarkDisplay, err.Error())
		}
		m = mark.Mark{Value: *rec.Mark, Display: rec.MarkDisplay, Kind: kind}
	}

	season := strconv.Itoa(year)
	info := meet.Info{
		Name:     rec.Location,
		Date:     season + "-01-01",
		Venue:    rec.Location,
		Location: rec.Location,
		Season:   season,
		Level:    meet.DefaultLevel,
	}

	place := 1
	res := normalize.Result{
		Index:  index,
		Event:  ev,
		Gender: gender,
		Mark:   m,
		Place:  &place,
		Level:  meet.DefaultLevel,
		Notes:  Notes(year),
	}

	// The record year stands in for the graduation year.
	person := func(name string) (normalize.Athlete, bool) {
		first, last := normalize.SplitName(name)
		if first == "" && last == "" {
			return normalize.Athlete{}, false
		}
		y := year
		return normalize.Athlete{First: first, Last: last, GradYear: &y, Gender: gender}, true
	}

	if ev.IsRelay || rec.IsRelay {
		res.Relay = &normalize.Relay{Team: "A", Legs: []normalize.Leg{}}
		for i, name := range rec.RelayMembers {
			if i >= normalize.MaxLegs {
				break
			}
			a, ok := person(name)
			if !ok {
				continue
			}
			res.Relay.Legs = append(res.Relay.Legs, normalize.Leg{Order: i + 1, Athlete: a})
		}
		if len(res.Relay.Legs) == 0 {
			return warn(string(normalize.InvalidRelay), rec.Event, "relay record has no members")
		}
		return res, info, nil
	}

	a, ok := person(rec.Athlete)
	if !ok {
		return warn(string(normalize.MissingName), rec.Event, "record has no athlete")
	}
	res.Athlete = &a
	return res, info, nil
}

// Import builds the records and loads them, one transaction per virtual
// meet. Build warnings are added to the summary.
func Import(ctx context.Context, l *loader.Loader, file *File, events *dictionary.Events) (*loader.Summary, error) {
	batches, warnings := Build(file, events)
	sum, err := l.LoadBatches(ctx, batches...)
	if sum != nil && len(warnings) > 0 {
		sum.Warnings = append(warnings, sum.Warnings...)
	}
	return sum, err
}
