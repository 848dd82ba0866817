package filter

import (
	"testing"
	"time"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

var rows = []aggregate.Row{
	{ResultID: 1, Athlete: "Jane Doe", Gender: "F", Event: "100m", Category: "sprints", MeetDate: "2025-04-12", Season: "2025", Level: "varsity"},
	{ResultID: 2, Athlete: "Macie Hoppin", Gender: "F", Event: "long jump", Category: "jumps", MeetDate: "2025-05-03", Season: "2025", Level: "jv"},
	{ResultID: 3, Athlete: "John Smith", Gender: "M", Event: "100m", Category: "sprints", MeetDate: "2024-04-20", Season: "2024", Level: "varsity"},
	{ResultID: 4, Athlete: "Relay A", Gender: "F", Event: "4x100m relay", Category: "relays", MeetDate: "2025-04-12", Season: "2025", Level: "varsity", IsRelay: true},
}

func ids(rows []aggregate.Row) []int64 {
	out := []int64{}
	for _, r := range rows {
		out = append(out, r.ResultID)
	}
	return out
}

func TestFilter_IsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{
			name:   "empty filter",
			filter: NewFilter(),
			want:   true,
		},
		{
			name:   "filter with date from",
			filter: &Filter{DateFrom: timePtr(time.Now())},
			want:   false,
		},
		{
			name:   "filter with season",
			filter: &Filter{Seasons: []string{"2025"}},
			want:   false,
		},
		{
			name:   "filter with athlete",
			filter: &Filter{Athletes: []string{"doe"}},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.IsEmpty(); got != tt.want {
				t.Errorf("Filter.IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   []int64
	}{
		{"empty", NewFilter(), []int64{1, 2, 3, 4}},
		{"season", &Filter{Seasons: []string{"2025"}}, []int64{1, 2, 4}},
		{"gender", &Filter{Genders: []string{"M"}}, []int64{3}},
		{"event by name", &Filter{Events: []string{"100M"}}, []int64{1, 3}},
		{"event by category", &Filter{Events: []string{"relays", "jumps"}}, []int64{2, 4}},
		{"athlete substring", &Filter{Athletes: []string{"DOE", "smith"}}, []int64{1, 3}},
		{"level", &Filter{Levels: []string{"jv"}}, []int64{2}},
		{
			name:   "date range inclusive",
			filter: &Filter{DateFrom: timePtr(time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)), DateTo: timePtr(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC))},
			want:   []int64{1, 4},
		},
		{
			name:   "combined criteria",
			filter: &Filter{Seasons: []string{"2025"}, Genders: []string{"F"}, Events: []string{"sprints"}},
			want:   []int64{1},
		},
		{"no match", &Filter{Seasons: []string{"1999"}}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tt.filter.Apply(rows))
			if len(got) != len(tt.want) {
				t.Fatalf("Apply() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Apply() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestFilter_MatchesBadDate(t *testing.T) {
	f := &Filter{DateFrom: timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))}
	if f.Matches(aggregate.Row{MeetDate: "someday"}) {
		t.Error("Matches() should reject a row without a readable date when a range is set")
	}
}

func TestFilter_String(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   string
	}{
		{"empty", NewFilter(), "No active filters"},
		{"season and gender", &Filter{Seasons: []string{"2025"}, Genders: []string{"F"}}, "Seasons: 2025 | Genders: F"},
		{"events", &Filter{Events: []string{"100m", "200m"}}, "Events: 100m, 200m"},
		{"from", &Filter{DateFrom: timePtr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))}, "From: Apr 1, 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilter_Clone(t *testing.T) {
	original := &Filter{
		Seasons:  []string{"2025"},
		Athletes: []string{"doe"},
		DateFrom: timePtr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
	}

	clone := original.Clone()
	clone.Seasons[0] = "2024"
	clone.Athletes = append(clone.Athletes, "smith")
	*clone.DateFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if original.Seasons[0] != "2025" {
		t.Error("Modifying clone affected original seasons")
	}
	if len(original.Athletes) != 1 {
		t.Error("Modifying clone affected original athletes")
	}
	if original.DateFrom.Year() != 2025 {
		t.Error("Modifying clone affected original date")
	}
}
