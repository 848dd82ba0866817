package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
)

const statusMarks = `DNS|DNF|DQ|NH|NM|FOUL|SCR|FS|NT|ND`

var (
	hytekEventRe = regexp.MustCompile(`^\s*Event\s+\d+\s+(Girls|Boys|Women|Men)\s+(.+?)\s*$`)
	hytekDetect  = regexp.MustCompile(`Event\s+\d+\s+(Girls|Boys)\s`)

	// " 6 # 696 Folkestad, Ava 10 Fort Collins 12.71 0.1 13 3"
	hytekResultLine = regexp.MustCompile(`^\s*(\d+|--)\s+#\s*\d+\s+`)
	hytekIndividual = regexp.MustCompile(
		`^\s*(\d+|--)\s+#\s*(\d+)\s+([^,]+),\s+(.+?)\s+(\d{1,2})\s+(.+?)\s+` +
			`([xXJ]?\d[\d:.\-]*[A-Za-z#*]*|` + statusMarks + `)(?:\s+(.*))?$`)

	// " 8 Fort Collins 'A' 10:56.50 1"
	hytekRelayTeam = regexp.MustCompile(`^\s*(\d+|--)\s+(.+?)\s+'([A-Z])'\s+(\S+)(?:\s+.*)?$`)
	// " 1) #702 Hoppin, Macie 10 2) #725 Sullivan, Sarah 9"
	hytekMember = regexp.MustCompile(`(\d)\)\s+(?:#\s*\d+\s+)?([^,()]+?),\s+(.+?)\s+(\d{1,2})(?:\s|$)`)

	windRe = regexp.MustCompile(`^[+-]?\d{1,2}\.\d$`)
)

// HyTekText reads the fixed-width text output of HyTek Meet Manager, either
// as a plain text file or wrapped in <pre> blocks.
type HyTekText struct{}

// Name returns the parser id.
func (HyTekText) Name() string { return "hytek_text" }

// Detect accepts content carrying the Meet Manager banner or an
// "Event N Girls|Boys" header.
func (HyTekText) Detect(content []byte) bool {
	return bytes.Contains(bytes.ToUpper(content), []byte("HY-TEK'S MEET MANAGER")) || hytekDetect.Match(content)
}

// Parse reads every event section of the file.
func (p HyTekText) Parse(content []byte) (*Result, error) {
	b := newBuilder(p.Name())

	var (
		event, gender string
		relayEvent    bool
		relay         *RawRow
	)
	flush := func() {
		if relay != nil {
			b.add(*relay)
			relay = nil
		}
	}

	for _, line := range strings.Split(plainText(content), "\n") {
		line = strings.TrimRight(line, "\r")

		if m := hytekEventRe.FindStringSubmatch(line); m != nil {
			flush()
			event = m[1] + " " + clean(m[2])
			gender, _ = dictionary.Gender(m[1])
			relayEvent = isRelayEvent(event)
			continue
		}
		if event == "" {
			continue
		}

		if relayEvent {
			if m := hytekRelayTeam.FindStringSubmatch(line); m != nil {
				flush()
				row := RawRow{
					Event:     event,
					Gender:    gender,
					RelayTeam: m[3],
					School:    clean(m[2]),
					Mark:      m[4],
					Place:     number(m[1]),
				}
				if reason := check(row); reason != "" {
					b.reject(line, reason)
					continue
				}
				relay = &row
				continue
			}
			if relay == nil {
				continue
			}
			for _, m := range hytekMember.FindAllStringSubmatch(line, -1) {
				relay.RelayMembers = append(relay.RelayMembers, Member{
					Name:  clean(m[3]) + " " + clean(m[2]),
					Grade: number(m[4]),
					Leg:   number(m[1]),
				})
			}
			continue
		}

		if !hytekResultLine.MatchString(line) {
			continue
		}
		m := hytekIndividual.FindStringSubmatch(line)
		if m == nil {
			b.reject(line, "unrecognized result line")
			continue
		}

		row := RawRow{
			Event:   event,
			Gender:  gender,
			Athlete: clean(m[4]) + " " + clean(m[3]),
			School:  clean(m[6]),
			Mark:    m[7],
			Place:   number(m[1]),
			Grade:   number(m[5]),
		}
		if rest := strings.Fields(m[8]); len(rest) > 0 && windRe.MatchString(rest[0]) {
			row.Wind = rest[0]
		}
		b.row(row, line)
	}
	flush()

	return b.result(), nil
}
