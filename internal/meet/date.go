package meet

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical storage form for meet dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ParseDate parses a meet date in any of the accepted layouts:
// "2025-04-12", "04/12/2025", "4/12/25", "Apr 12 2025", "April 12, 2025".
func ParseDate(text string) (time.Time, error) {
	s := strings.Join(strings.Fields(text), " ")
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidConfig)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrInvalidConfig, text)
}
