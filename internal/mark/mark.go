// Package mark parses and formats track and field performance marks.
//
// A mark is either timed (seconds) or measured (meters). Parse keeps enough
// layout information to rebuild the exact source text with Format, including
// vendor annotations such as the leading "x" (non-scoring) or trailing "q"
// (qualifier) and "w" (wind aided) flags.
package mark

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MetersPerInch is the exact international inch.
const MetersPerInch = 0.0254

var (
	// ErrNotAMark is returned for status codes such as DNS or FOUL.
	ErrNotAMark = errors.New("not a mark")
	// ErrInvalidMark is returned for text that looks like neither a time nor a distance.
	ErrInvalidMark = errors.New("invalid mark")
)

// Kind selects how a mark is read.
type Kind int

const (
	Timed Kind = iota + 1
	Measured
)

func (k Kind) String() string {
	switch k {
	case Timed:
		return "timed"
	case Measured:
		return "measured"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Style is the textual shape a mark was written in.
type Style int

const (
	StyleSeconds Style = iota + 1
	StyleMinutes
	StyleHours
	StyleFeetDash
	StyleFeetQuote
	StyleMetric
)

// Layout records how a mark was written so Format can rebuild it.
type Layout struct {
	Style    Style  `json:"style"`
	Lead     int    `json:"lead"`
	Inch     int    `json:"inch,omitempty"`
	Decimals int    `json:"decimals"`
	Prefix   string `json:"prefix,omitempty"`
	Suffix   string `json:"suffix,omitempty"`
	Foot     string `json:"foot,omitempty"`
	Gap      string `json:"gap,omitempty"`
	InchMark string `json:"inch_mark,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Grouped  bool   `json:"grouped,omitempty"`
}

// Mark is a parsed performance. Value is seconds for timed marks and meters
// for measured marks.
type Mark struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Kind    Kind    `json:"kind"`
	Layout  Layout  `json:"layout"`
}

// flagSet matches trailing annotations: h hand timed, a automatic, q Q
// qualifier, S seed, w W wind aided, c C converted, y yards, e estimated,
// # and * footnotes. Fractions take at most four digits.
const flagSet = `([ahqQSwWcCye#*]*)`

var (
	hoursRe     = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})(?:\.(\d{1,4}))?` + flagSet + `$`)
	minutesRe   = regexp.MustCompile(`^(\d+):(\d{2})(?:\.(\d{1,4}))?` + flagSet + `$`)
	secondsRe   = regexp.MustCompile(`^(\d+)(?:\.(\d{1,4}))?` + flagSet + `$`)
	feetDashRe  = regexp.MustCompile(`^(\d+)-(\d{1,2})(?:\.(\d{1,4}))?` + flagSet + `$`)
	feetQuoteRe = regexp.MustCompile(`^(\d+)(['’′])(\s*)(\d{1,2})(?:\.(\d{1,4}))?(["”″]?)` + flagSet + `$`)
	metricRe    = regexp.MustCompile(`^([1-9]\d{0,2}(?:,\d{3})+|\d+)(?:\.(\d{1,4}))?(\s?m)?` + flagSet + `$`)
)

var statuses = map[string]bool{
	"DNS": true, "DNF": true, "DQ": true, "NH": true, "NM": true,
	"FOUL": true, "SCR": true, "FS": true, "NT": true, "ND": true,
	"--": true, "DNQ": true,
}

// IsStatus reports whether text is a non-mark status code (or empty).
func IsStatus(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return true
	}
	return statuses[strings.ToUpper(fields[0])]
}

// Parse reads text as a mark of the given kind.
func Parse(text string, kind Kind) (Mark, error) {
	s := strings.TrimSpace(text)
	if IsStatus(s) {
		return Mark{}, fmt.Errorf("%w: %q", ErrNotAMark, text)
	}

	prefix, core := splitPrefix(s)

	var (
		m  Mark
		ok bool
	)
	switch kind {
	case Timed:
		m, ok = parseTime(core)
	case Measured:
		m, ok = parseDistance(core)
	default:
		return Mark{}, fmt.Errorf("unknown mark kind %v", kind)
	}
	if !ok {
		return Mark{}, fmt.Errorf("%w: %q", ErrInvalidMark, text)
	}

	m.Kind = kind
	m.Display = s
	m.Layout.Prefix = prefix
	return m, nil
}

// Looks reports whether text parses as either a time or a distance.
func Looks(text string) bool {
	if _, err := Parse(text, Timed); err == nil {
		return true
	}
	_, err := Parse(text, Measured)
	return err == nil
}

// Compare orders two mark values for an event direction. It returns -1 when
// a is better than b, 1 when b is better and 0 when they are equal.
func Compare(a, b float64, lowerIsBetter bool) int {
	if a == b {
		return 0
	}
	if (a < b) == lowerIsBetter {
		return -1
	}
	return 1
}

func splitPrefix(s string) (string, string) {
	if len(s) >= 2 && strings.ContainsRune("xXJ", rune(s[0])) && isDigit(s[1]) {
		return s[:1], s[1:]
	}
	return "", s
}

func parseTime(core string) (Mark, bool) {
	if g := hoursRe.FindStringSubmatch(core); g != nil {
		h, mi, se := atoi(g[1]), atoi(g[2]), atoi(g[3])
		if mi >= 60 || se >= 60 {
			return Mark{}, false
		}
		return Mark{
			Value:  float64(h*3600+mi*60+se) + fraction(g[4]),
			Layout: Layout{Style: StyleHours, Lead: len(g[1]), Decimals: len(g[4]), Suffix: g[5]},
		}, true
	}

	if g := minutesRe.FindStringSubmatch(core); g != nil {
		mi, se := atoi(g[1]), atoi(g[2])
		if se >= 60 {
			return Mark{}, false
		}
		return Mark{
			Value:  float64(mi*60+se) + fraction(g[3]),
			Layout: Layout{Style: StyleMinutes, Lead: len(g[1]), Decimals: len(g[3]), Suffix: g[4]},
		}, true
	}

	if g := secondsRe.FindStringSubmatch(core); g != nil {
		return Mark{
			Value:  float64(atoi(g[1])) + fraction(g[2]),
			Layout: Layout{Style: StyleSeconds, Lead: len(g[1]), Decimals: len(g[2]), Suffix: g[3]},
		}, true
	}

	return Mark{}, false
}

func parseDistance(core string) (Mark, bool) {
	if g := feetDashRe.FindStringSubmatch(core); g != nil {
		inches := atoi(g[2])
		if inches >= 12 {
			return Mark{}, false
		}
		total := float64(atoi(g[1])*12+inches) + fraction(g[3])
		return Mark{
			Value: total * MetersPerInch,
			Layout: Layout{
				Style: StyleFeetDash, Lead: len(g[1]), Inch: len(g[2]),
				Decimals: len(g[3]), Suffix: g[4],
			},
		}, true
	}

	if g := feetQuoteRe.FindStringSubmatch(core); g != nil {
		inches := atoi(g[4])
		if inches >= 12 {
			return Mark{}, false
		}
		total := float64(atoi(g[1])*12+inches) + fraction(g[5])
		return Mark{
			Value: total * MetersPerInch,
			Layout: Layout{
				Style: StyleFeetQuote, Lead: len(g[1]), Inch: len(g[4]),
				Decimals: len(g[5]), Foot: g[2], Gap: g[3], InchMark: g[6], Suffix: g[7],
			},
		}, true
	}

	if g := metricRe.FindStringSubmatch(core); g != nil {
		grouped := strings.Contains(g[1], ",")
		whole := strings.ReplaceAll(g[1], ",", "")
		return Mark{
			Value: float64(atoi(whole)) + fraction(g[2]),
			Layout: Layout{
				Style: StyleMetric, Lead: len(whole), Decimals: len(g[2]),
				Unit: g[3], Grouped: grouped, Suffix: g[4],
			},
		}, true
	}

	return Mark{}, false
}

func fraction(digits string) float64 {
	if digits == "" {
		return 0
	}
	f, err := strconv.ParseFloat("0."+digits, 64)
	if err != nil {
		return 0
	}
	return f
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
