package loader

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pfrederiksen/trackstats/internal/normalize"
)

// Warning kinds raised by the loader itself. Row issues from the normalizer
// keep their normalize.Kind value.
const (
	KindMissingSource    = "missing_source"
	KindParseError       = "parse_error"
	KindRejectedRow      = "rejected_row"
	KindAmbiguousAthlete = "ambiguous_athlete"
)

// Warning is one non-fatal problem with enough context to fix the data or
// the dictionaries.
type Warning struct {
	Kind   string `json:"kind"`
	Meet   string `json:"meet,omitempty"`
	Source string `json:"source,omitempty"`
	Index  int    `json:"index"`
	Raw    string `json:"raw,omitempty"`
	Reason string `json:"reason"`
	// Count is the number of rows folded into this warning.
	Count int `json:"count"`
}

// Counts tallies row outcomes.
type Counts struct {
	Rows            int `json:"rows"`
	Created         int `json:"created"`
	Skipped         int `json:"skipped"`
	Replaced        int `json:"replaced"`
	Rejected        int `json:"rejected"`
	Ignored         int `json:"ignored"`
	AthletesCreated int `json:"athletes_created"`
	RelayMembers    int `json:"relay_members"`
}

func (c *Counts) add(o Counts) {
	c.Rows += o.Rows
	c.Created += o.Created
	c.Skipped += o.Skipped
	c.Replaced += o.Replaced
	c.Rejected += o.Rejected
	c.Ignored += o.Ignored
	c.AthletesCreated += o.AthletesCreated
	c.RelayMembers += o.RelayMembers
}

// MeetSummary is the outcome of one committed meet.
type MeetSummary struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Path        string `json:"path,omitempty"`
	MeetID      int64  `json:"meet_id"`
	MeetCreated bool   `json:"meet_created"`
	Sources     int    `json:"sources"`
	Failed      int    `json:"failed_sources"`
	Counts
}

// Summary is the result of one load run.
type Summary struct {
	RunID    uuid.UUID     `json:"run_id"`
	Cleared  string        `json:"cleared,omitempty"`
	Meets    []MeetSummary `json:"meets"`
	Totals   Counts        `json:"totals"`
	Warnings []Warning     `json:"warnings"`
}

func newSummary() *Summary {
	return &Summary{RunID: uuid.New(), Meets: []MeetSummary{}, Warnings: []Warning{}}
}

func (s *Summary) addMeet(m MeetSummary) {
	s.Meets = append(s.Meets, m)
	s.Totals.add(m.Counts)
}

// HasWarnings reports whether the run raised any warning.
func (s *Summary) HasWarnings() bool {
	return len(s.Warnings) > 0
}

// UnmatchedEvents returns the distinct raw event titles that did not match
// the dictionary, sorted.
func (s *Summary) UnmatchedEvents() []string {
	return s.distinct(string(normalize.UnmatchedEvent))
}

// AmbiguousAthletes returns the distinct names that matched more than one
// stored athlete, sorted.
func (s *Summary) AmbiguousAthletes() []string {
	return s.distinct(KindAmbiguousAthlete)
}

func (s *Summary) distinct(kind string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, w := range s.Warnings {
		if w.Kind != kind || seen[w.Raw] {
			continue
		}
		seen[w.Raw] = true
		out = append(out, w.Raw)
	}
	sort.Strings(out)
	return out
}

// warnings collects the warnings of one meet. Unmatched events are folded
// per source and title so a missing alias is reported once.
type warnings struct {
	meet   string
	list   []Warning
	folded map[string]int
}

func newWarnings(meet string) *warnings {
	return &warnings{meet: meet, folded: make(map[string]int)}
}

func (w *warnings) add(kind, source string, index int, raw, reason string) {
	if kind == string(normalize.UnmatchedEvent) {
		key := source + "\x00" + raw
		if i, ok := w.folded[key]; ok {
			w.list[i].Count++
			return
		}
		w.folded[key] = len(w.list)
	}
	w.list = append(w.list, Warning{
		Kind: kind, Meet: w.meet, Source: source, Index: index, Raw: raw, Reason: reason, Count: 1,
	})
}

func (w *warnings) issue(source string, issue normalize.Issue) {
	w.add(string(issue.Kind), source, issue.Index, issue.Raw, issue.Reason)
}
