package normalize

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/parser"
)

func testContext(t *testing.T) Context {
	t.Helper()
	events, err := dictionary.DefaultEvents()
	if err != nil {
		t.Fatalf("DefaultEvents() error = %v", err)
	}
	schools, err := dictionary.DefaultSchools()
	if err != nil {
		t.Fatalf("DefaultSchools() error = %v", err)
	}
	return Context{
		Meet:    meet.Info{Name: "Poudre Invitational", Date: "2025-04-12", Season: "2025", Level: "varsity"},
		Events:  events,
		Schools: schools,
	}
}

func newNormalizer(t *testing.T, ctx Context) *Normalizer {
	t.Helper()
	n, err := New(ctx)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return n
}

func intPtr(v int) *int { return &v }

func TestNewRequiresDictionaries(t *testing.T) {
	if _, err := New(Context{}); err == nil {
		t.Error("New() with no dictionaries should fail")
	}
}

func TestNormalizeSprint(t *testing.T) {
	n := newNormalizer(t, testContext(t))

	res, issue := n.Normalize(parser.RawRow{
		Index: 3, Event: "Girls 100 Meter Dash", Gender: "F", Athlete: "Jane Doe",
		School: "Fort Collins", Mark: "12.34", Place: 2, Grade: 11, Wind: "+0.4",
	})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}

	if res.Event.Name != "100m" {
		t.Errorf("Event = %q, expected 100m", res.Event.Name)
	}
	expected := &Athlete{First: "Jane", Last: "Doe", GradYear: intPtr(2026), Gender: "F"}
	if diff := cmp.Diff(expected, res.Athlete); diff != "" {
		t.Errorf("Athlete mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(res.Mark.Value-12.34) > 1e-9 || res.Mark.Display != "12.34" {
		t.Errorf("Mark = %v %q, expected 12.34", res.Mark.Value, res.Mark.Display)
	}
	if res.Index != 3 || *res.Place != 2 || res.Heat != nil {
		t.Errorf("Index/Place/Heat = %d/%v/%v, expected 3/2/nil", res.Index, *res.Place, res.Heat)
	}
	if res.Wind == nil || *res.Wind != 0.4 {
		t.Errorf("Wind = %v, expected 0.4", res.Wind)
	}
	if res.Level != "varsity" {
		t.Errorf("Level = %q, expected varsity", res.Level)
	}
}

func TestNormalizeMeasured(t *testing.T) {
	n := newNormalizer(t, testContext(t))

	res, issue := n.Normalize(parser.RawRow{Event: "Girls Long Jump", Athlete: "Dodd, Chloe", School: "Fort Collins HS", Mark: "17-04.00"})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}
	if res.Athlete.First != "Chloe" || res.Athlete.Last != "Dodd" {
		t.Errorf("Athlete = %+v, expected Chloe Dodd", res.Athlete)
	}
	// 208 inches.
	if math.Abs(res.Mark.Value-5.2832) > 1e-9 {
		t.Errorf("Mark.Value = %v, expected 5.2832", res.Mark.Value)
	}
	if res.Gender != "F" {
		t.Errorf("Gender = %q, expected F from the event title", res.Gender)
	}
}

func TestNormalizeIssues(t *testing.T) {
	tests := []struct {
		name string
		row  parser.RawRow
		kind Kind
		raw  string
	}{
		{
			name: "unmatched event",
			row:  parser.RawRow{Event: "Hundred Meter Dash", Athlete: "Jane Doe", School: "Fort Collins", Mark: "12.34"},
			kind: UnmatchedEvent,
			raw:  "Hundred Meter Dash",
		},
		{
			name: "other school",
			row:  parser.RawRow{Event: "100 Meters", Athlete: "Amy Zed", School: "Poudre", Mark: "12.50"},
			kind: NotTracked,
			raw:  "Poudre",
		},
		{
			name: "excluded look-alike",
			row:  parser.RawRow{Event: "100 Meters", Athlete: "Amy Zed", School: "Fort Collins Christian Academy", Mark: "12.50"},
			kind: NotTracked,
			raw:  "Fort Collins Christian Academy",
		},
		{
			name: "time in a field event",
			row:  parser.RawRow{Event: "Shot Put", Athlete: "Jane Doe", School: "Fort Collins", Mark: "1:02.33"},
			kind: InvalidMark,
			raw:  "1:02.33",
		},
		{
			name: "status mark",
			row:  parser.RawRow{Event: "100 Meters", Athlete: "Jane Doe", School: "Fort Collins", Mark: "DNS"},
			kind: InvalidMark,
			raw:  "DNS",
		},
		{
			name: "no name",
			row:  parser.RawRow{Event: "100 Meters", Athlete: "  ", School: "Fort Collins", Mark: "12.34"},
			kind: MissingName,
			raw:  "  ",
		},
	}

	n := newNormalizer(t, testContext(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.Index = 9
			res, issue := n.Normalize(tt.row)
			if res != nil {
				t.Fatalf("Normalize() = %+v, expected an issue", res)
			}
			if issue.Kind != tt.kind || issue.Raw != tt.raw || issue.Index != 9 {
				t.Errorf("issue = %+v, expected %s for %q at 9", issue, tt.kind, tt.raw)
			}
		})
	}
}

func TestNormalizeGenderCounterpart(t *testing.T) {
	n := newNormalizer(t, testContext(t))

	res, issue := n.Normalize(parser.RawRow{Event: "Boys 100 Meter Hurdles", Gender: "M", Athlete: "John Smith", School: "Fort Collins", Mark: "15.10"})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}
	if res.Event.Name != "110m hurdles" {
		t.Errorf("Event = %q, expected 110m hurdles", res.Event.Name)
	}
}

func TestNormalizeNameMappings(t *testing.T) {
	ctx := testContext(t)
	ctx.NameMappings = map[string]string{"Jon Smith": "John Smith"}
	n := newNormalizer(t, ctx)

	res, issue := n.Normalize(parser.RawRow{Event: "Boys 1600 Meter Run", Athlete: "Jon  Smith", School: "Fort Collins", Mark: "4:40.00"})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}
	if res.Athlete.FullName() != "John Smith" {
		t.Errorf("Athlete = %q, expected John Smith", res.Athlete.FullName())
	}
	if res.Athlete.GradYear != nil {
		t.Errorf("GradYear = %v, expected nil without a grade", *res.Athlete.GradYear)
	}
}

func TestNormalizeEventOverrides(t *testing.T) {
	ctx := testContext(t)
	ctx.Gender = "M"
	ctx.EventOverrides = []meet.EventSelector{
		{CanonicalEvent: "100m", EventHeader: "Boys 100 Meter Dash", Level: "jv"},
		{CanonicalEvent: "shot put"},
	}
	n := newNormalizer(t, ctx)

	res, issue := n.Normalize(parser.RawRow{Event: "Boys 100 Meter Dash", Athlete: "John Smith", School: "Fort Collins", Mark: "11.90"})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}
	if res.Event.Name != "100m" || res.Level != "jv" || res.Gender != "M" {
		t.Errorf("result = %s/%s/%s, expected 100m/jv/M", res.Event.Name, res.Level, res.Gender)
	}

	// Selected through its canonical event.
	res, issue = n.Normalize(parser.RawRow{Event: "Boys Shot Put", Athlete: "John Smith", School: "Fort Collins", Mark: "45-06.50"})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}
	if res.Event.Name != "shot put" || res.Level != "varsity" {
		t.Errorf("result = %s/%s, expected shot put/varsity", res.Event.Name, res.Level)
	}

	_, issue = n.Normalize(parser.RawRow{Event: "Boys 200 Meter Dash", Athlete: "John Smith", School: "Fort Collins", Mark: "23.50"})
	if issue == nil || issue.Kind != NotSelected || !issue.Kind.Silent() {
		t.Errorf("issue = %v, expected silent NotSelected", issue)
	}
}

func TestNormalizeWrongGender(t *testing.T) {
	ctx := testContext(t)
	ctx.EventOverrides = []meet.EventSelector{{CanonicalEvent: "100m hurdles"}}
	n := newNormalizer(t, ctx)

	_, issue := n.Normalize(parser.RawRow{Event: "Hurdles", Gender: "M", Athlete: "John Smith", School: "Fort Collins", Mark: "15.10"})
	if issue == nil || issue.Kind != WrongGender {
		t.Errorf("issue = %v, expected WrongGender", issue)
	}
}

func TestNormalizeRelayMembers(t *testing.T) {
	n := newNormalizer(t, testContext(t))

	res, issue := n.Normalize(parser.RawRow{
		Event: "Girls 4x100 Meter Relay", Gender: "F", RelayTeam: "A", School: "Fort Collins", Mark: "50.12",
		RelayMembers: []parser.Member{
			{Name: "Macie Hoppin", Grade: 10, Leg: 1},
			{Name: "Sarah Sullivan", Grade: 9, Leg: 2},
			{Name: "Jane Doe", Grade: 11, Leg: 3},
			{Name: "Chloe Dodd", Grade: 12, Leg: 4},
		},
	})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}
	if res.Athlete != nil {
		t.Errorf("Athlete = %+v, expected nil for a relay", res.Athlete)
	}
	if res.Relay.Team != "A" || res.Notes != "Relay Team: A" {
		t.Errorf("Relay.Team = %q, Notes = %q", res.Relay.Team, res.Notes)
	}

	expected := []Leg{
		{Order: 1, Athlete: Athlete{First: "Macie", Last: "Hoppin", GradYear: intPtr(2027), Gender: "F"}},
		{Order: 2, Athlete: Athlete{First: "Sarah", Last: "Sullivan", GradYear: intPtr(2028), Gender: "F"}},
		{Order: 3, Athlete: Athlete{First: "Jane", Last: "Doe", GradYear: intPtr(2026), Gender: "F"}},
		{Order: 4, Athlete: Athlete{First: "Chloe", Last: "Dodd", GradYear: intPtr(2025), Gender: "F"}},
	}
	if diff := cmp.Diff(expected, res.Relay.Legs); diff != "" {
		t.Errorf("Legs mismatch (-want +got):\n%s", diff)
	}
	if len(res.RelayIssues) != 0 {
		t.Errorf("RelayIssues = %+v, expected none", res.RelayIssues)
	}
}

func TestNormalizeRelayFromNameField(t *testing.T) {
	n := newNormalizer(t, testContext(t))

	res, issue := n.Normalize(parser.RawRow{
		Event: "Girls 4x400 Relay", School: "Fort Collins", Mark: "4:10.50",
		Athlete: "Macie Hoppin; Sarah Sullivan & Jane Doe / Chloe Dodd; Amy Extra; Jane Doe",
	})
	if issue != nil {
		t.Fatalf("Normalize() issue = %v", issue)
	}
	if res.Relay.Team != "A" {
		t.Errorf("Relay.Team = %q, expected default A", res.Relay.Team)
	}
	if len(res.Relay.Legs) != 4 {
		t.Fatalf("len(Legs) = %d, expected 4", len(res.Relay.Legs))
	}
	for i, leg := range res.Relay.Legs {
		if leg.Order != i+1 {
			t.Errorf("Legs[%d].Order = %d, expected %d", i, leg.Order, i+1)
		}
	}
	if res.Relay.Legs[2].Athlete.FullName() != "Jane Doe" {
		t.Errorf("Legs[2] = %q, expected Jane Doe", res.Relay.Legs[2].Athlete.FullName())
	}

	if len(res.RelayIssues) != 2 {
		t.Fatalf("RelayIssues = %+v, expected 2", res.RelayIssues)
	}
	for _, ri := range res.RelayIssues {
		if ri.Kind != UnresolvedMember {
			t.Errorf("RelayIssue kind = %s, expected %s", ri.Kind, UnresolvedMember)
		}
	}
	if res.RelayIssues[0].Raw != "Amy Extra" || res.RelayIssues[1].Raw != "Jane Doe" {
		t.Errorf("RelayIssues raw = %q, %q", res.RelayIssues[0].Raw, res.RelayIssues[1].Raw)
	}
}

func TestNormalizeRelayPolicy(t *testing.T) {
	row := parser.RawRow{Event: "Girls 4x100 Meter Relay", RelayTeam: "B", School: "Fort Collins", Mark: "52.00"}

	n := newNormalizer(t, testContext(t))
	_, issue := n.Normalize(row)
	if issue == nil || issue.Kind != InvalidRelay {
		t.Errorf("drop policy issue = %v, expected InvalidRelay", issue)
	}

	ctx := testContext(t)
	ctx.RelayPolicy = RelayKeep
	n = newNormalizer(t, ctx)
	res, issue := n.Normalize(row)
	if issue != nil {
		t.Fatalf("keep policy issue = %v", issue)
	}
	if res.Relay == nil || len(res.Relay.Legs) != 0 || res.Relay.Team != "B" {
		t.Errorf("Relay = %+v, expected team B without legs", res.Relay)
	}
}

func TestNormalizeUnletteredRelays(t *testing.T) {
	n := newNormalizer(t, testContext(t))

	batch := n.NormalizeAll([]parser.RawRow{
		{Index: 0, Event: "Girls 4x100 Meter Relay", Athlete: "Macie Hoppin; Sarah Sullivan", School: "Fort Collins", Mark: "50.12", Place: 1},
		{Index: 1, Event: "Girls 4x100 Meter Relay", RelayTeam: "B", Athlete: "Amy Zed; Ann Lee", School: "Fort Collins", Mark: "51.40", Place: 3},
		{Index: 2, Event: "Girls 4x100 Meter Relay", Athlete: "Jane Doe; Chloe Dodd", School: "Fort Collins", Mark: "52.90", Place: 5},
		{Index: 3, Event: "Girls 4x400 Meter Relay", Athlete: "Jane Doe; Chloe Dodd", School: "Fort Collins", Mark: "4:10.00", Place: 2},
	})

	var teams []string
	for _, res := range batch.Results {
		teams = append(teams, res.Relay.Team)
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "A"}, teams); diff != "" {
		t.Errorf("relay teams mismatch (-want +got):\n%s", diff)
	}
	if batch.Results[2].Notes != "Relay Team: C" {
		t.Errorf("Notes = %q", batch.Results[2].Notes)
	}
}

func TestNormalizeAll(t *testing.T) {
	n := newNormalizer(t, testContext(t))

	batch := n.NormalizeAll([]parser.RawRow{
		{Index: 0, Event: "100 Meters", Athlete: "Jane Doe", School: "Fort Collins", Mark: "12.34"},
		{Index: 1, Event: "Hundred Meter Dash", Athlete: "Jane Doe", School: "Fort Collins", Mark: "12.34"},
		{Index: 2, Event: "100 Meters", Athlete: "Amy Zed", School: "Poudre", Mark: "12.50"},
		{Index: 3, Event: "200 Meters", Athlete: "Jane Doe", School: "Fort Collins", Mark: "25.80"},
	})

	if len(batch.Results) != 2 || batch.Results[0].Index != 0 || batch.Results[1].Index != 3 {
		t.Errorf("Results = %+v, expected rows 0 and 3", batch.Results)
	}
	var kinds []Kind
	for _, issue := range batch.Issues {
		kinds = append(kinds, issue.Kind)
	}
	if diff := cmp.Diff([]Kind{UnmatchedEvent, NotTracked}, kinds); diff != "" {
		t.Errorf("issue kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRelayPolicy(t *testing.T) {
	tests := []struct {
		in       string
		expected RelayPolicy
	}{
		{"", RelayDrop},
		{"drop", RelayDrop},
		{"KEEP", RelayKeep},
	}
	for _, tt := range tests {
		got, err := ParseRelayPolicy(tt.in)
		if err != nil || got != tt.expected {
			t.Errorf("ParseRelayPolicy(%q) = %q, %v, expected %q", tt.in, got, err, tt.expected)
		}
	}

	if _, err := ParseRelayPolicy("maybe"); !errors.Is(err, ErrUnknownRelayPolicy) {
		t.Errorf("ParseRelayPolicy(maybe) error = %v, expected ErrUnknownRelayPolicy", err)
	}
}
