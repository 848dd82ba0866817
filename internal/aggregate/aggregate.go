// Package aggregate derives personal records and team bests from stored
// results.
//
// The reductions mirror the SQL views of the storage package: the best mark
// under the event's direction, ties broken by the earlier meet date and then
// the lower result id.
package aggregate

import (
	"sort"

	"github.com/pfrederiksen/trackstats/internal/mark"
)

// Row is one stored result joined with its athlete, event and meet.
type Row struct {
	ResultID      int64   `json:"result_id"`
	AthleteID     int64   `json:"athlete_id,omitempty"`
	Athlete       string  `json:"athlete"`
	GradYear      *int    `json:"graduation_year,omitempty"`
	Gender        string  `json:"gender"`
	EventID       int64   `json:"event_id"`
	Event         string  `json:"event"`
	Category      string  `json:"category,omitempty"`
	LowerIsBetter bool    `json:"lower_is_better"`
	IsRelay       bool    `json:"is_relay"`
	Mark          float64 `json:"mark"`
	Display       string  `json:"mark_display"`
	MeetID        int64   `json:"meet_id"`
	Meet          string  `json:"meet"`
	MeetDate      string  `json:"meet_date"`
	Season        string  `json:"season"`
	Level         string  `json:"level,omitempty"`
	RelayTeam     string  `json:"relay_team,omitempty"`
}

// Better reports whether a beats b. Both rows must be of the same event.
func Better(a, b Row) bool {
	switch mark.Compare(a.Mark, b.Mark, a.LowerIsBetter) {
	case -1:
		return true
	case 1:
		return false
	}
	if a.MeetDate != b.MeetDate {
		return a.MeetDate < b.MeetDate
	}
	return a.ResultID < b.ResultID
}

// PersonalRecords returns the best individual result of every athlete in
// every event. Relay results are not personal.
func PersonalRecords(rows []Row) []Row {
	type key struct {
		athlete int64
		event   int64
	}
	return reduce(rows, func(r Row) (key, bool) {
		return key{r.AthleteID, r.EventID}, !r.IsRelay && r.AthleteID != 0
	})
}

// TeamBests returns the all-time best result of every event and gender.
func TeamBests(rows []Row) []Row {
	type key struct {
		event  int64
		gender string
	}
	return reduce(rows, func(r Row) (key, bool) {
		return key{r.EventID, r.Gender}, true
	})
}

// SeasonBests returns the best result of every event and gender within each
// season.
func SeasonBests(rows []Row) []Row {
	type key struct {
		season string
		event  int64
		gender string
	}
	bests := reduce(rows, func(r Row) (key, bool) {
		return key{r.Season, r.EventID, r.Gender}, true
	})
	sort.SliceStable(bests, func(i, j int) bool {
		return bests[i].Season > bests[j].Season
	})
	return bests
}

func reduce[K comparable](rows []Row, keyOf func(Row) (K, bool)) []Row {
	best := make(map[K]Row)
	for _, r := range rows {
		k, ok := keyOf(r)
		if !ok {
			continue
		}
		if cur, seen := best[k]; !seen || Better(r, cur) {
			best[k] = r
		}
	}

	out := make([]Row, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	Sort(out)
	return out
}

// Sort orders rows by gender, category, event, athlete and result id.
func Sort(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Gender != b.Gender {
			return a.Gender < b.Gender
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.Athlete != b.Athlete {
			return a.Athlete < b.Athlete
		}
		return a.ResultID < b.ResultID
	})
}
