package filter

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(f *Filter) bool
	}{
		{
			name:  "empty",
			input: "  ",
			check: func(f *Filter) bool { return f.IsEmpty() },
		},
		{
			name:  "season gender event",
			input: "season:2025 gender:F event:100m",
			check: func(f *Filter) bool {
				return len(f.Seasons) == 1 && f.Seasons[0] == "2025" &&
					len(f.Genders) == 1 && f.Genders[0] == "F" &&
					len(f.Events) == 1 && f.Events[0] == "100m"
			},
		},
		{
			name:  "gender spelled out",
			input: "gender:boys,girls",
			check: func(f *Filter) bool {
				return len(f.Genders) == 2 && f.Genders[0] == "M" && f.Genders[1] == "F"
			},
		},
		{
			name:  "quoted athlete",
			input: `athlete:"jane   doe" level:jv`,
			check: func(f *Filter) bool {
				return len(f.Athletes) == 1 && f.Athletes[0] == "jane doe" &&
					len(f.Levels) == 1 && f.Levels[0] == "jv"
			},
		},
		{
			name:  "quoted event with spaces",
			input: `event:"long jump,high jump"`,
			check: func(f *Filter) bool {
				return len(f.Events) == 2 && f.Events[0] == "long jump" && f.Events[1] == "high jump"
			},
		},
		{
			name:  "repeated keys add values",
			input: "season:2024 seasons:2025",
			check: func(f *Filter) bool { return len(f.Seasons) == 2 },
		},
		{
			name:  "from and to",
			input: "from:2025-04-01 to:04/30/2025",
			check: func(f *Filter) bool {
				return f.DateFrom.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) &&
					f.DateTo.Equal(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC))
			},
		},
		{
			name:  "open date range",
			input: "date:2025-04-01..",
			check: func(f *Filter) bool { return f.DateFrom != nil && f.DateTo == nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if !tt.check(f) {
				t.Errorf("Parse(%q) = %+v", tt.input, f)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"season",
		"season:",
		"color:red",
		"gender:other",
		`athlete:"jane`,
		"from:yesterday",
		"from:2025-05-01 to:2025-04-01",
		"date:..",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if !errors.Is(err, ErrInvalidFilter) {
				t.Errorf("Parse(%q) error = %v, expected ErrInvalidFilter", input, err)
			}
		})
	}
}

func TestParseDateRange(t *testing.T) {
	apr1 := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	may31 := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		wantFrom *time.Time
		wantTo   *time.Time
		wantErr  bool
	}{
		{"closed range", "2025-04-01..2025-05-31", &apr1, &may31, false},
		{"single day", "April 1, 2025", &apr1, &apr1, false},
		{"open end", "2025-04-01..", &apr1, nil, false},
		{"open start", "..2025-05-31", nil, &may31, false},
		{"reversed", "2025-05-31..2025-04-01", nil, nil, true},
		{"empty", "", nil, nil, true},
		{"garbage", "spring", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ParseDateRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDateRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !sameTime(from, tt.wantFrom) || !sameTime(to, tt.wantTo) {
				t.Errorf("ParseDateRange(%q) = %v, %v, expected %v, %v", tt.input, from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
