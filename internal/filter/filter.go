// Package filter narrows aggregate rows for the query commands.
//
// A filter combines any of these criteria; every active criterion must match:
//   - Seasons (exact match)
//   - Genders ("M"/"F", accepts boys/girls spellings)
//   - Events (canonical event name or category, case-insensitive)
//   - Athletes (substring matching, case-insensitive)
//   - Levels (varsity, jv, ...)
//   - Meet date range (from/to, inclusive)
//
// Example usage:
//
//	f, err := filter.Parse("season:2025 gender:girls event:sprints")
//	if err != nil {
//	    return err
//	}
//	rows = f.Apply(rows)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
	"github.com/pfrederiksen/trackstats/internal/meet"
)

// Filter represents row filtering criteria
type Filter struct {
	Seasons  []string `json:"seasons,omitempty"`
	Genders  []string `json:"genders,omitempty"`
	Events   []string `json:"events,omitempty"`
	Athletes []string `json:"athletes,omitempty"`
	Levels   []string `json:"levels,omitempty"`

	// Meet date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all rows until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Seasons:  []string{},
		Genders:  []string{},
		Events:   []string{},
		Athletes: []string{},
		Levels:   []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return len(f.Seasons) == 0 &&
		len(f.Genders) == 0 &&
		len(f.Events) == 0 &&
		len(f.Athletes) == 0 &&
		len(f.Levels) == 0 &&
		f.DateFrom == nil &&
		f.DateTo == nil
}

// Matches checks if a row matches all active filter criteria.
// An empty filter matches all rows.
func (f *Filter) Matches(row aggregate.Row) bool {
	if f.IsEmpty() {
		return true
	}

	if len(f.Seasons) > 0 && !anyEqual(f.Seasons, row.Season) {
		return false
	}
	if len(f.Genders) > 0 && !anyEqual(f.Genders, row.Gender) {
		return false
	}
	if len(f.Events) > 0 && !anyEqual(f.Events, row.Event) && !anyEqual(f.Events, row.Category) {
		return false
	}
	if len(f.Levels) > 0 && !anyEqual(f.Levels, row.Level) {
		return false
	}

	if len(f.Athletes) > 0 {
		matched := false
		nameLower := strings.ToLower(row.Athlete)
		for _, name := range f.Athletes {
			if strings.Contains(nameLower, strings.ToLower(name)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.DateFrom != nil || f.DateTo != nil {
		date, err := time.Parse(meet.DateLayout, row.MeetDate)
		if err != nil {
			return false
		}
		if f.DateFrom != nil && date.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && date.After(*f.DateTo) {
			return false
		}
	}

	return true
}

func anyEqual(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Apply returns the rows that match, preserving order. If the filter is
// empty, returns the original slice unchanged.
func (f *Filter) Apply(rows []aggregate.Row) []aggregate.Row {
	if f.IsEmpty() {
		return rows
	}

	filtered := []aggregate.Row{}
	for _, row := range rows {
		if f.Matches(row) {
			filtered = append(filtered, row)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Returns "No active filters" if the filter is empty.
// Format: "Seasons: 2025 | Genders: F | Events: 100m, 200m"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if len(f.Seasons) > 0 {
		parts = append(parts, fmt.Sprintf("Seasons: %s", strings.Join(f.Seasons, ", ")))
	}
	if len(f.Genders) > 0 {
		parts = append(parts, fmt.Sprintf("Genders: %s", strings.Join(f.Genders, ", ")))
	}
	if len(f.Events) > 0 {
		parts = append(parts, fmt.Sprintf("Events: %s", strings.Join(f.Events, ", ")))
	}
	if len(f.Athletes) > 0 {
		parts = append(parts, fmt.Sprintf("Athletes: %s", strings.Join(f.Athletes, ", ")))
	}
	if len(f.Levels) > 0 {
		parts = append(parts, fmt.Sprintf("Levels: %s", strings.Join(f.Levels, ", ")))
	}
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		Seasons:  append([]string{}, f.Seasons...),
		Genders:  append([]string{}, f.Genders...),
		Events:   append([]string{}, f.Events...),
		Athletes: append([]string{}, f.Athletes...),
		Levels:   append([]string{}, f.Levels...),
	}

	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}
	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}

	return clone
}
