package parser

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pfrederiksen/trackstats/internal/mark"
)

// Auto selects the parser by content detection.
const Auto = "auto"

var (
	// ErrUnrecognizedFormat is returned when no parser accepts the content.
	ErrUnrecognizedFormat = errors.New("unrecognized result format")
	// ErrUnknownParser is returned for a parser id that is not registered.
	ErrUnknownParser = errors.New("unknown parser")
)

// Parser turns the raw bytes of one result file into rows.
// Implementations do no I/O and produce the same rows for the same input.
type Parser interface {
	Name() string
	Detect(content []byte) bool
	Parse(content []byte) (*Result, error)
}

// Member is one relay leg as printed in the source.
type Member struct {
	Name  string `json:"name"`
	Grade int    `json:"grade,omitempty"`
	Leg   int    `json:"leg,omitempty"`
}

// RawRow is a single result row before normalization. Zero numeric fields
// mean the source did not carry the value.
type RawRow struct {
	Index        int      `json:"index"`
	Event        string   `json:"event"`
	Gender       string   `json:"gender,omitempty"`
	Athlete      string   `json:"athlete,omitempty"`
	RelayTeam    string   `json:"relay_team,omitempty"`
	RelayMembers []Member `json:"relay_members,omitempty"`
	School       string   `json:"school"`
	Mark         string   `json:"mark"`
	Place        int      `json:"place,omitempty"`
	Grade        int      `json:"grade,omitempty"`
	Heat         int      `json:"heat,omitempty"`
	Lane         int      `json:"lane,omitempty"`
	Flight       int      `json:"flight,omitempty"`
	Wind         string   `json:"wind,omitempty"`
}

// Fingerprint identifies a row by the fields that make two rows the same
// result.
func (r RawRow) Fingerprint() string {
	members := make([]string, 0, len(r.RelayMembers))
	for _, m := range r.RelayMembers {
		members = append(members, m.Name)
	}

	h := sha1.New()
	h.Write([]byte(strings.Join([]string{
		r.Event, r.Gender, r.Athlete, r.RelayTeam, strings.Join(members, ";"),
		r.School, r.Mark, strconv.Itoa(r.Place), strconv.Itoa(r.Heat),
	}, "|")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Rejected is a row the parser could not turn into a result.
type Rejected struct {
	Index  int    `json:"index"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Result is the output of one Parse call.
type Result struct {
	Parser   string     `json:"parser"`
	Rows     []RawRow   `json:"rows"`
	Rejected []Rejected `json:"rejected,omitempty"`
}

var registry = []Parser{
	HyTekText{},
	MilesplitMulti{},
	MilesplitSingle{},
	GenericTable{},
}

// Names returns the registered parser ids in detection priority order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, p := range registry {
		names = append(names, p.Name())
	}
	return names
}

// Known reports whether id is a registered parser or Auto.
func Known(id string) bool {
	if id == Auto {
		return true
	}
	_, err := Get(id)
	return err == nil
}

// Get returns the parser registered under id.
func Get(id string) (Parser, error) {
	for _, p := range registry {
		if p.Name() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownParser, id, strings.Join(Names(), ", "))
}

// Detect returns the first parser, in priority order, that accepts content.
func Detect(content []byte) (Parser, error) {
	for _, p := range registry {
		if p.Detect(content) {
			return p, nil
		}
	}
	return nil, ErrUnrecognizedFormat
}

// Select resolves a configured parser id. An empty id or Auto detects.
func Select(id string, content []byte) (Parser, error) {
	if id == "" || id == Auto {
		return Detect(content)
	}
	return Get(id)
}

// builder accumulates rows in source order and drops exact repeats.
type builder struct {
	res  *Result
	seen map[string]bool
	next int
}

func newBuilder(name string) *builder {
	return &builder{
		res:  &Result{Parser: name, Rows: []RawRow{}},
		seen: make(map[string]bool),
	}
}

// check returns the reason a row cannot be accepted, or "".
func check(row RawRow) string {
	if row.Athlete == "" && row.RelayTeam == "" && len(row.RelayMembers) == 0 {
		return "missing athlete name"
	}
	if strings.TrimSpace(row.Mark) == "" {
		return "missing mark"
	}
	if mark.IsStatus(row.Mark) {
		return "no mark: " + strings.ToUpper(strings.Fields(row.Mark)[0])
	}
	if !mark.Looks(row.Mark) {
		return fmt.Sprintf("not a mark: %q", row.Mark)
	}
	return ""
}

// row validates and records row, rejecting it with raw as context.
func (b *builder) row(row RawRow, raw string) {
	if reason := check(row); reason != "" {
		b.reject(raw, reason)
		return
	}
	b.add(row)
}

func (b *builder) add(row RawRow) {
	row.Index = b.next
	b.next++

	fp := row.Fingerprint()
	if b.seen[fp] {
		return
	}
	b.seen[fp] = true
	b.res.Rows = append(b.res.Rows, row)
}

func (b *builder) reject(raw, reason string) {
	b.res.Rejected = append(b.res.Rejected, Rejected{Index: b.next, Raw: clean(raw), Reason: reason})
	b.next++
}

func (b *builder) result() *Result {
	return b.res
}
