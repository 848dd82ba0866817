// Package normalize maps raw parser rows onto canonical events, athletes and
// marks.
//
// A Normalizer is built once per source from an immutable Context and does
// no I/O. Rows that cannot be mapped come back as a classified Issue; the
// row is dropped and the caller decides whether to warn.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/mark"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/parser"
)

// MaxLegs is the number of legs a relay has.
const MaxLegs = 4

// Context is the meet-level information rows are normalized against.
type Context struct {
	Meet meet.Info
	// Level overrides Meet.Level when set.
	Level string
	// Gender is the default gender of the source ("M", "F" or empty).
	Gender       string
	NameMappings map[string]string
	Events       *dictionary.Events
	Schools      *dictionary.Schools
	// EventOverrides restrict the source to the listed events. Rows of any
	// other event are NotSelected.
	EventOverrides []meet.EventSelector
	RelayPolicy    RelayPolicy
}

// Athlete is a person as named by one result.
type Athlete struct {
	First    string `json:"first_name"`
	Last     string `json:"last_name"`
	GradYear *int   `json:"graduation_year,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

// FullName returns "First Last".
func (a Athlete) FullName() string {
	return strings.TrimSpace(a.First + " " + a.Last)
}

// Leg is one relay member in running order.
type Leg struct {
	Order   int     `json:"order"`
	Athlete Athlete `json:"athlete"`
}

// Relay is the team side of a relay result.
type Relay struct {
	Team string `json:"team"`
	Legs []Leg  `json:"legs"`
}

// Result is a normalized result row, ready to be stored.
type Result struct {
	Index   int              `json:"index"`
	Event   dictionary.Event `json:"event"`
	Athlete *Athlete         `json:"athlete,omitempty"`
	Relay   *Relay           `json:"relay,omitempty"`
	Gender  string           `json:"gender,omitempty"`
	Mark    mark.Mark        `json:"mark"`
	Place   *int             `json:"place,omitempty"`
	Heat    *int             `json:"heat,omitempty"`
	Lane    *int             `json:"lane,omitempty"`
	Flight  *int             `json:"flight,omitempty"`
	Wind    *float64         `json:"wind,omitempty"`
	Level   string           `json:"level"`
	Notes   string           `json:"notes,omitempty"`

	// RelayIssues lists legs that could not be resolved. The result itself
	// is still valid.
	RelayIssues []Issue `json:"relay_issues,omitempty"`
}

// Batch is the outcome of normalizing every row of one source.
type Batch struct {
	Results []Result `json:"results"`
	Issues  []Issue  `json:"issues,omitempty"`
}

// Normalizer turns raw rows into results for one source.
type Normalizer struct {
	ctx      Context
	year     int
	mappings map[string]string
	// teams holds the relay letters used per event and school.
	teams map[string]map[string]bool
}

// New builds a Normalizer. Both dictionaries are required.
func New(ctx Context) (*Normalizer, error) {
	if ctx.Events == nil || ctx.Schools == nil {
		return nil, errors.New("normalize: events and schools dictionaries are required")
	}
	if ctx.RelayPolicy == "" {
		ctx.RelayPolicy = RelayDrop
	}

	mappings := make(map[string]string, len(ctx.NameMappings))
	for from, to := range ctx.NameMappings {
		mappings[dictionary.Key(from)] = clean(to)
	}

	return &Normalizer{
		ctx:      ctx,
		year:     ctx.Meet.SeasonYear(),
		mappings: mappings,
		teams:    make(map[string]map[string]bool),
	}, nil
}

// NormalizeAll normalizes rows in order. Issues, including relay leg issues,
// are returned in row order.
func (n *Normalizer) NormalizeAll(rows []parser.RawRow) Batch {
	batch := Batch{Results: []Result{}}
	for _, row := range rows {
		res, issue := n.Normalize(row)
		if issue != nil {
			batch.Issues = append(batch.Issues, *issue)
			continue
		}
		batch.Issues = append(batch.Issues, res.RelayIssues...)
		batch.Results = append(batch.Results, *res)
	}
	return batch
}

// Normalize maps one row. Exactly one of the return values is non-nil.
func (n *Normalizer) Normalize(row parser.RawRow) (*Result, *Issue) {
	ev, sel, issue := n.event(row)
	if issue != nil {
		return nil, issue
	}

	if !n.ctx.Schools.IsTracked(row.School) {
		return nil, n.issue(NotTracked, row, row.School, fmt.Sprintf("school %q is not tracked", row.School))
	}

	gender := firstOf(row.Gender, sel.Gender, n.ctx.Gender, dictionary.GenderOf(row.Event), ev.Gender)
	if ev.Gender != "" && gender != ev.Gender {
		return nil, n.issue(WrongGender, row, row.Event,
			fmt.Sprintf("event %s is restricted to %s, row is %s", ev.Name, ev.Gender, gender))
	}

	kind := mark.Measured
	if ev.Timed {
		kind = mark.Timed
	}
	m, err := mark.Parse(row.Mark, kind)
	if err != nil {
		return nil, n.issue(InvalidMark, row, row.Mark, err.Error())
	}

	res := &Result{
		Index:  row.Index,
		Event:  ev,
		Gender: gender,
		Mark:   m,
		Place:  optional(row.Place),
		Heat:   optional(row.Heat),
		Lane:   optional(row.Lane),
		Flight: optional(row.Flight),
		Wind:   parseWind(row.Wind),
		Level:  firstOf(sel.Level, n.ctx.Level, n.ctx.Meet.Level, meet.DefaultLevel),
	}

	if ev.IsRelay {
		if issue := n.relay(res, row); issue != nil {
			return nil, issue
		}
		return res, nil
	}

	athlete, ok := n.athlete(row.Athlete, row.Grade, gender)
	if !ok {
		return nil, n.issue(MissingName, row, row.Athlete, "athlete name is empty")
	}
	res.Athlete = &athlete
	return res, nil
}

// event resolves the canonical event of row, honoring the source's event
// overrides when it has any.
func (n *Normalizer) event(row parser.RawRow) (dictionary.Event, meet.EventSelector, *Issue) {
	gender := firstOf(row.Gender, n.ctx.Gender, dictionary.GenderOf(row.Event))

	if len(n.ctx.EventOverrides) == 0 {
		ev, ok := n.ctx.Events.Match(row.Event, gender)
		if !ok {
			return dictionary.Event{}, meet.EventSelector{}, n.issue(UnmatchedEvent, row, row.Event,
				fmt.Sprintf("event %q is not in the dictionary", row.Event))
		}
		return ev, meet.EventSelector{}, nil
	}

	sel, ok := n.selector(row.Event, gender)
	if !ok {
		return dictionary.Event{}, meet.EventSelector{}, n.issue(NotSelected, row, row.Event,
			fmt.Sprintf("event %q is not selected", row.Event))
	}
	ev, ok := n.ctx.Events.Lookup(sel.CanonicalEvent)
	if !ok {
		return dictionary.Event{}, meet.EventSelector{}, n.issue(UnmatchedEvent, row, sel.CanonicalEvent,
			fmt.Sprintf("canonical event %q is not in the dictionary", sel.CanonicalEvent))
	}
	return ev, sel, nil
}

// selector finds the override for a raw event title: an exact header match,
// then a header contained in the title, then an override without a header
// whose canonical event the title matches. A single override without a
// header takes every row.
func (n *Normalizer) selector(raw, gender string) (meet.EventSelector, bool) {
	overrides := n.ctx.EventOverrides
	key := dictionary.Key(raw)

	for _, sel := range overrides {
		if sel.EventHeader != "" && dictionary.Key(sel.EventHeader) == key {
			return sel, true
		}
	}
	for _, sel := range overrides {
		if h := dictionary.Key(sel.EventHeader); h != "" && strings.Contains(key, h) {
			return sel, true
		}
	}

	if len(overrides) == 1 && overrides[0].EventHeader == "" {
		return overrides[0], true
	}
	if ev, ok := n.ctx.Events.Match(raw, gender); ok {
		for _, sel := range overrides {
			if sel.EventHeader != "" {
				continue
			}
			if want, found := n.ctx.Events.Lookup(sel.CanonicalEvent); found && want.Name == ev.Name {
				return sel, true
			}
		}
	}
	return meet.EventSelector{}, false
}

// athlete applies the name mappings and splits the name.
func (n *Normalizer) athlete(raw string, grade int, gender string) (Athlete, bool) {
	name := clean(raw)
	if to, ok := n.mappings[dictionary.Key(name)]; ok {
		name = to
	}

	first, last := SplitName(name)
	if first == "" && last == "" {
		return Athlete{}, false
	}
	return Athlete{
		First:    first,
		Last:     last,
		GradYear: GraduationYear(n.year, grade),
		Gender:   gender,
	}, true
}

// relay fills the team side of a relay result. Members come from the parsed
// leg list, else from the name field split on ; / and &.
func (n *Normalizer) relay(res *Result, row parser.RawRow) *Issue {
	team := n.relayTeam(res, row)
	res.Relay = &Relay{Team: team, Legs: []Leg{}}
	res.Notes = "Relay Team: " + team

	members := row.RelayMembers
	if len(members) == 0 {
		for _, name := range splitMembers(row.Athlete) {
			members = append(members, parser.Member{Name: name})
		}
	}

	legs := make(map[int]bool)
	people := make(map[string]bool)
	for i, m := range members {
		order := m.Leg
		if order == 0 {
			order = i + 1
		}

		athlete, ok := n.athlete(m.Name, m.Grade, res.Gender)
		var reason string
		switch {
		case !ok:
			reason = fmt.Sprintf("leg %d has no name", order)
		case order > MaxLegs:
			reason = fmt.Sprintf("leg %d of %s is beyond %d legs", order, athlete.FullName(), MaxLegs)
		case legs[order]:
			reason = fmt.Sprintf("leg %d is listed twice", order)
		case people[dictionary.Key(athlete.FullName())]:
			reason = fmt.Sprintf("%s runs more than one leg", athlete.FullName())
		}
		if reason != "" {
			res.RelayIssues = append(res.RelayIssues, Issue{Kind: UnresolvedMember, Index: row.Index, Raw: m.Name, Reason: reason})
			continue
		}

		legs[order] = true
		people[dictionary.Key(athlete.FullName())] = true
		res.Relay.Legs = append(res.Relay.Legs, Leg{Order: order, Athlete: athlete})
	}

	if len(res.Relay.Legs) == 0 && n.ctx.RelayPolicy != RelayKeep {
		return n.issue(InvalidRelay, row, firstOf(row.Athlete, row.School+" '"+team+"'"),
			fmt.Sprintf("relay %s '%s' has no resolvable members", row.School, team))
	}
	return nil
}

// relayTeam returns the team letter of a relay row. Unlettered teams of the
// same school and event get the first unused letter in row order.
func (n *Normalizer) relayTeam(res *Result, row parser.RawRow) string {
	key := strings.Join([]string{res.Event.Name, res.Gender, res.Level, dictionary.Key(row.School)}, "|")
	used := n.teams[key]
	if used == nil {
		used = make(map[string]bool)
		n.teams[key] = used
	}

	team := strings.ToUpper(strings.TrimSpace(row.RelayTeam))
	for c := 'A'; team == "" && c <= 'Z'; c++ {
		if !used[string(c)] {
			team = string(c)
		}
	}
	if team == "" {
		team = fmt.Sprintf("%d", len(used)+1)
	}
	used[team] = true
	return team
}

func (n *Normalizer) issue(kind Kind, row parser.RawRow, raw, reason string) *Issue {
	return &Issue{Kind: kind, Index: row.Index, Raw: raw, Reason: reason}
}
