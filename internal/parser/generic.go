package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/mark"
)

type column int

const (
	columnNone column = iota
	columnPlace
	columnName
	columnSchool
	columnMark
	columnWind
	columnHeat
	columnLane
	columnGrade
)

var headerWords = map[string]column{
	"pl": columnPlace, "place": columnPlace, "pos": columnPlace, "position": columnPlace, "#": columnPlace,
	"name": columnName, "athlete": columnName, "competitor": columnName,
	"school": columnSchool, "team": columnSchool, "affiliation": columnSchool,
	"time": columnMark, "mark": columnMark, "result": columnMark, "perf": columnMark, "performance": columnMark,
	"wind": columnWind, "w": columnWind,
	"heat": columnHeat, "ht": columnHeat,
	"lane": columnLane, "ln": columnLane,
	"grade": columnGrade, "yr": columnGrade, "year": columnGrade, "gr": columnGrade,
}

var nameLikeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z\s,.'-]+$`)

// columns maps each known column to its index. Header cells that are not
// known words are ignored.
type columns map[column]int

func detectColumns(headers []string) columns {
	cols := make(columns)
	for i, h := range headers {
		c, ok := headerWords[strings.ToLower(clean(h))]
		if !ok {
			continue
		}
		if _, dup := cols[c]; !dup {
			cols[c] = i
		}
	}
	return cols
}

// isHeader reports whether at least two cells are known column names.
func isHeader(cells []string) bool {
	return len(detectColumns(cells)) >= 2
}

func (c columns) usable() bool {
	_, name := c[columnName]
	_, mk := c[columnMark]
	return name && mk
}

func (c columns) get(cells []string, col column) string {
	i, ok := c[col]
	if !ok || i >= len(cells) {
		return ""
	}
	return clean(cells[i])
}

// GenericTable reads any HTML table, or tab separated text, whose first row
// names its columns.
type GenericTable struct{}

// Name returns the parser id.
func (GenericTable) Name() string { return "generic_table" }

// Detect accepts content holding a table with a header row.
func (GenericTable) Detect(content []byte) bool {
	if doc, ok := document(content); ok {
		found := false
		doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
			found = isHeader(cellTexts(table.Find("tr").First()))
			return !found
		})
		return found
	}
	_, cols, _ := tsvHeader(content)
	return cols != nil
}

// Parse reads every table. The event of a table is its caption, else the
// nearest heading above it.
func (p GenericTable) Parse(content []byte) (*Result, error) {
	b := newBuilder(p.Name())

	if !looksLikeHTML(content) {
		p.parseTSV(b, content)
		return b.result(), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var heading string
	doc.Find("h1, h2, h3, h4, h5, h6, table").Each(func(_ int, sel *goquery.Selection) {
		if !sel.Is("table") {
			heading = clean(sel.Text())
			return
		}

		event := heading
		if caption := clean(sel.Find("caption").First().Text()); caption != "" {
			event = caption
		}

		rows := sel.Find("tr")
		cols := detectColumns(cellTexts(rows.First()))
		if cols.usable() {
			rows = rows.Slice(1, rows.Length())
		} else {
			cols = nil
		}

		rows.Each(func(_ int, tr *goquery.Selection) {
			cells := cellTexts(tr)
			if len(cells) == 0 {
				return
			}
			b.row(tableRow(event, cells, cols), strings.Join(cells, " | "))
		})
	})

	return b.result(), nil
}

func (p GenericTable) parseTSV(b *builder, content []byte) {
	lines, cols, start := tsvHeader(content)
	if cols == nil {
		return
	}

	event := ""
	for _, line := range lines[:start-1] {
		if t := clean(line); t != "" {
			event = t
		}
	}

	for _, line := range lines[start:] {
		if clean(line) == "" {
			continue
		}
		cells := strings.Split(strings.TrimRight(line, "\r"), "\t")
		b.row(tableRow(event, cells, cols), strings.Join(cells, " | "))
	}
}

// tsvHeader finds the first tab separated header line. It returns the lines
// of content, the detected columns and the index of the first data line.
func tsvHeader(content []byte) ([]string, columns, int) {
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if !strings.Contains(line, "\t") {
			continue
		}
		cols := detectColumns(strings.Split(strings.TrimRight(line, "\r"), "\t"))
		if cols.usable() {
			return lines, cols, i + 1
		}
		return lines, nil, 0
	}
	return lines, nil, 0
}

// tableRow builds a row from cells using cols, or by guessing each cell's
// meaning when the table has no usable header.
func tableRow(event string, cells []string, cols columns) RawRow {
	row := RawRow{Event: event, Gender: dictionary.GenderOf(event)}

	if cols != nil {
		row.Place = number(cols.get(cells, columnPlace))
		row.Athlete = cols.get(cells, columnName)
		row.School = cols.get(cells, columnSchool)
		row.Mark = cols.get(cells, columnMark)
		row.Wind = cols.get(cells, columnWind)
		row.Heat = number(cols.get(cells, columnHeat))
		row.Lane = number(cols.get(cells, columnLane))
		row.Grade = number(cols.get(cells, columnGrade))
	} else {
		guessCells(&row, cells)
	}

	if isRelayEvent(event) {
		row.School, row.RelayTeam = splitRelayLetter(row.School)
		if name, letter := splitRelayLetter(row.Athlete); letter != "" {
			row.RelayTeam = letter
			if row.School == "" {
				row.School = name
			}
			if dictionary.Key(name) == dictionary.Key(row.School) {
				row.Athlete = ""
			}
		}
	}
	return row
}

func guessCells(row *RawRow, cells []string) {
	for i, raw := range cells {
		cell := clean(raw)
		switch {
		case cell == "":
		case i == 0 && digitsRe.MatchString(cell) && number(cell) > 0 && !strings.ContainsAny(cell, ":.-"):
			row.Place = number(cell)
		case row.Mark == "" && strings.ContainsAny(cell, ":.-'") && mark.Looks(cell):
			row.Mark = cell
		case nameLikeRe.MatchString(cell) && !mark.IsStatus(cell):
			if row.Athlete == "" {
				row.Athlete = cell
			} else if row.School == "" {
				row.School = cell
			}
		case row.Mark == "" && mark.IsStatus(cell):
			row.Mark = cell
		}
	}
}

func cellTexts(tr *goquery.Selection) []string {
	var out []string
	tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, cellText(c))
	})
	return out
}
