package parser

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
)

// MileSplit result tables use a fixed column order.
const (
	colPlace = iota
	colVideo
	colAthlete
	colGrade
	colTeam
	colMark
	colWind
	colHeat
)

// MilesplitMulti reads MileSplit pages holding several events, each a
// p.eventName header followed by a table.eventTable.
type MilesplitMulti struct{}

// Name returns the parser id.
func (MilesplitMulti) Name() string { return "milesplit_multi" }

// Detect accepts pages with both event headers and event tables.
func (MilesplitMulti) Detect(content []byte) bool {
	doc, ok := document(content)
	if !ok {
		return false
	}
	return doc.Find("p.eventName").Length() > 0 && doc.Find("table.eventTable").Length() > 0
}

// Parse reads each event table under the most recent header.
func (p MilesplitMulti) Parse(content []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	b := newBuilder(p.Name())
	var event string
	doc.Find("p.eventName, table.eventTable").Each(func(_ int, sel *goquery.Selection) {
		if sel.Is("p") {
			event = clean(sel.Text())
			return
		}
		eventTable(b, sel, event)
	})

	return b.result(), nil
}

// MilesplitSingle reads a MileSplit page holding one event table and no
// event headers; the event comes from the page heading.
type MilesplitSingle struct{}

// Name returns the parser id.
func (MilesplitSingle) Name() string { return "milesplit_single" }

// Detect accepts pages with an event table but no event headers.
func (MilesplitSingle) Detect(content []byte) bool {
	doc, ok := document(content)
	if !ok {
		return false
	}
	return doc.Find("table.eventTable").Length() > 0 && doc.Find("p.eventName").Length() == 0
}

// Parse reads every event table of the page under the page title.
func (p MilesplitSingle) Parse(content []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	event := ""
	for _, sel := range []string{"h1", "h2", "title"} {
		if t := clean(doc.Find(sel).First().Text()); t != "" {
			event = t
			break
		}
	}

	b := newBuilder(p.Name())
	doc.Find("table.eventTable").Each(func(_ int, table *goquery.Selection) {
		eventTable(b, table, event)
	})

	return b.result(), nil
}

// eventTable reads the data rows of one MileSplit table. Header rows use th
// cells and are skipped.
func eventTable(b *builder, table *goquery.Selection, event string) {
	gender := dictionary.GenderOf(event)
	relay := isRelayEvent(event)

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		cell := func(i int) *goquery.Selection {
			return cells.Eq(i)
		}

		row := RawRow{
			Event:  event,
			Gender: gender,
			Place:  number(cell(colPlace).Text()),
			Grade:  number(cell(colGrade).Text()),
			School: cellText(cell(colTeam)),
			Mark:   clean(cell(colMark).Text()),
			Wind:   clean(cell(colWind).Text()),
			Heat:   number(cell(colHeat).Text()),
		}

		athlete := cell(colAthlete)
		if relay {
			relayRow(&row, athlete)
		} else {
			row.Athlete = cellText(athlete)
		}

		b.row(row, rowText(cells))
	})
}

// relayRow fills the relay fields of row from the athlete cell, which holds
// either the team name ("Fort Collins 'A'"), a list of legs, or the leg
// names as text.
func relayRow(row *RawRow, athlete *goquery.Selection) {
	row.School, row.RelayTeam = splitRelayLetter(row.School)
	row.RelayMembers = relayMembers(athlete)

	name, letter := splitRelayLetter(cellText(athlete))
	if row.RelayTeam == "" {
		row.RelayTeam = letter
	}
	if letter != "" && row.School == "" {
		row.School = name
	}
	if len(row.RelayMembers) > 0 {
		return
	}
	if letter != "" && dictionary.Key(name) == dictionary.Key(row.School) {
		return
	}
	row.Athlete = name
}

func document(content []byte) (*goquery.Document, bool) {
	if !looksLikeHTML(content) {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, false
	}
	return doc, true
}
