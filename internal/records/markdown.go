package records

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/loader"
	"github.com/pfrederiksen/trackstats/internal/mark"
	"github.com/pfrederiksen/trackstats/internal/normalize"
)

var (
	columnSep = regexp.MustCompile(`\t+|\s{2,}`)
	relayTag  = regexp.MustCompile(`^\([0-9x-]+\)`)
	yearRe    = regexp.MustCompile(`\b(\d{4})\b`)
	// M.SS.ss, as 1.27.09 for 1:27.09.
	dottedTime = regexp.MustCompile(`^(\d+)\.(\d{2})\.(\d+)$`)
)

var quotes = strings.NewReplacer(
	"‘", "'", "’", "'", "‛", "'", "′", "'",
	"“", `"`, "”", `"`, "″", `"`,
)

// ParseMarkdown reads a school records table exported from a document.
// Each record line holds event, athlete, mark and location columns
// separated by tabs or runs of spaces. A relay line is followed by a
// "(4x100)" tag line and indented member lines. Records whose mark cannot
// be read come back as warnings.
func ParseMarkdown(r io.Reader, gender string, events *dictionary.Events) ([]Record, []loader.Warning, error) {
	var (
		list      []Record
		warnings  []loader.Warning
		relay     = -1
		members   bool
		lineIndex int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineIndex++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "**") {
			continue
		}

		if relayTag.MatchString(line) {
			members = false
			if relay >= 0 && len(list[relay].RelayMembers) == 0 {
				rec := &list[relay]
				rec.RelayMembers = append(rec.RelayMembers, rec.Athlete)
				if parts := columnSep.Split(line, -1); len(parts) >= 2 && len(strings.TrimSpace(parts[1])) > 1 {
					rec.RelayMembers = append(rec.RelayMembers, strings.TrimSpace(parts[1]))
				}
				members = true
			}
			continue
		}

		if members && (raw[0] == '\t' || raw[0] == ' ') {
			rec := &list[relay]
			if len(line) > 1 && !strings.HasPrefix(line, "(") {
				rec.RelayMembers = append(rec.RelayMembers, line)
			}
			if len(rec.RelayMembers) >= normalize.MaxLegs {
				members = false
			}
			continue
		}
		members = false

		if strings.Contains(line, "EVENT") || strings.Contains(line, "ATHLETE") {
			continue
		}
		parts := columnSep.Split(line, -1)
		if len(parts) < 4 {
			continue
		}

		rec, w := parseRecord(parts, gender, events)
		if w != nil {
			w.Index = lineIndex
			warnings = append(warnings, *w)
			continue
		}
		list = append(list, rec)
		if rec.IsRelay {
			relay = len(list) - 1
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading records table: %w", err)
	}
	if list == nil {
		list = []Record{}
	}
	return list, warnings, nil
}

func parseRecord(parts []string, gender string, events *dictionary.Events) (Record, *loader.Warning) {
	rec := Record{
		Event:        strings.TrimSpace(parts[0]),
		Athlete:      strings.TrimSpace(parts[1]),
		MarkDisplay:  quotes.Replace(strings.TrimSpace(parts[2])),
		Location:     strings.TrimSpace(parts[3]),
		RelayMembers: []string{},
	}
	if m := yearRe.FindStringSubmatch(rec.Location); m != nil {
		year, _ := strconv.Atoi(m[1])
		rec.Year = &year
	}

	lower := strings.ToLower(rec.Event)
	rec.IsRelay = strings.Contains(lower, "relay") || strings.Contains(lower, "4x")

	kinds := []mark.Kind{mark.Timed, mark.Measured}
	if ev, ok := events.Match(rec.Event, gender); ok {
		rec.IsRelay = rec.IsRelay || ev.IsRelay
		kinds = kinds[1:]
		if ev.Timed {
			kinds = []mark.Kind{mark.Timed}
		}
	}

	for _, kind := range kinds {
		text := rec.MarkDisplay
		if kind == mark.Timed {
			text = dottedTime.ReplaceAllString(text, "$1:$2.$3")
		}
		if m, err := mark.Parse(text, kind); err == nil {
			v := m.Value
			rec.Mark = &v
			return rec, nil
		}
	}
	return Record{}, &loader.Warning{
		Kind:   string(normalize.InvalidMark),
		Meet:   rec.Location,
		Raw:    rec.MarkDisplay,
		Reason: fmt.Sprintf("cannot read mark for %s", rec.Event),
		Count:  1,
	}
}
