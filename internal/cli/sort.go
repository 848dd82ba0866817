package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
	"github.com/pfrederiksen/trackstats/internal/mark"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByEvent   SortOrder = "event"
	SortByMark    SortOrder = "mark"
	SortByAthlete SortOrder = "athlete"
	SortByDate    SortOrder = "date"
)

// ParseSortOrder reads a sort order name. The empty string is SortByEvent.
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case "":
		return SortByEvent, nil
	case SortByEvent, SortByMark, SortByAthlete, SortByDate:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be event, mark, athlete or date)", s)
	}
}

// sortRows sorts query rows based on the specified sort order
func sortRows(rows []aggregate.Row, order SortOrder) {
	switch order {
	case SortByEvent:
		aggregate.Sort(rows)
	case SortByMark:
		// Marks only compare within an event, so rows stay grouped by event
		// and the best mark leads each group.
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if a.Gender != b.Gender {
				return a.Gender < b.Gender
			}
			if a.EventID != b.EventID {
				return a.EventID < b.EventID
			}
			if c := mark.Compare(a.Mark, b.Mark, a.LowerIsBetter); c != 0 {
				return c < 0
			}
			return compareByDate(a, b)
		})
	case SortByAthlete:
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := strings.ToLower(rows[i].Athlete), strings.ToLower(rows[j].Athlete)
			if a != b {
				return a < b
			}
			return rows[i].EventID < rows[j].EventID
		})
	case SortByDate:
		sort.SliceStable(rows, func(i, j int) bool {
			return compareByDate(rows[i], rows[j])
		})
	}
}

// compareByDate reports whether row i should come before row j: newest meet
// first, then event and athlete.
func compareByDate(i, j aggregate.Row) bool {
	if i.MeetDate != j.MeetDate {
		return i.MeetDate > j.MeetDate
	}
	if i.EventID != j.EventID {
		return i.EventID < j.EventID
	}
	return strings.ToLower(i.Athlete) < strings.ToLower(j.Athlete)
}
