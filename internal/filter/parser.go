package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/meet"
)

// ErrInvalidFilter is returned for expressions Parse cannot read.
var ErrInvalidFilter = errors.New("invalid filter")

// Parse reads a filter expression of space separated key:value terms.
//
// Supported keys:
//   - season:2025 (alias seasons)
//   - gender:F, gender:girls
//   - event:100m, event:sprints (name or category)
//   - athlete:doe, athlete:"jane doe"
//   - level:jv
//   - from:2025-04-01, to:2025-05-31
//   - date:2025-04-01..2025-05-31 (either end may be empty)
//
// Values may be comma separated; repeated keys add values. An empty
// expression returns an empty filter.
func Parse(expr string) (*Filter, error) {
	f := NewFilter()

	terms, err := split(expr)
	if err != nil {
		return nil, err
	}

	for _, term := range terms {
		key, value, ok := strings.Cut(term, ":")
		if !ok || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("%w: %q is not key:value", ErrInvalidFilter, term)
		}

		switch strings.ToLower(key) {
		case "season", "seasons":
			f.Seasons = append(f.Seasons, values(value)...)
		case "gender":
			for _, v := range values(value) {
				g, ok := dictionary.Gender(v)
				if !ok || g == "" {
					return nil, fmt.Errorf("%w: unknown gender %q", ErrInvalidFilter, v)
				}
				f.Genders = append(f.Genders, g)
			}
		case "event", "events":
			f.Events = append(f.Events, values(value)...)
		case "athlete", "athletes":
			f.Athletes = append(f.Athletes, values(value)...)
		case "level", "levels":
			f.Levels = append(f.Levels, values(value)...)
		case "from":
			if f.DateFrom, err = date(value); err != nil {
				return nil, err
			}
		case "to":
			if f.DateTo, err = date(value); err != nil {
				return nil, err
			}
		case "date":
			if f.DateFrom, f.DateTo, err = ParseDateRange(value); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, key)
		}
	}

	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return nil, fmt.Errorf("%w: start date must be before end date", ErrInvalidFilter)
	}
	return f, nil
}

// ParseDateRange parses "FROM..TO" into inclusive bounds. Either end may be
// left empty for an open range; a single date is a one-day range.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("%w: date range cannot be empty", ErrInvalidFilter)
	}

	fromText, toText, isRange := strings.Cut(input, "..")
	if !isRange {
		d, err := date(input)
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	}

	var from, to *time.Time
	var err error
	if strings.TrimSpace(fromText) != "" {
		if from, err = date(fromText); err != nil {
			return nil, nil, err
		}
	}
	if strings.TrimSpace(toText) != "" {
		if to, err = date(toText); err != nil {
			return nil, nil, err
		}
	}
	if from == nil && to == nil {
		return nil, nil, fmt.Errorf("%w: date range %q has no bounds", ErrInvalidFilter, input)
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("%w: start date must be before end date", ErrInvalidFilter)
	}
	return from, to, nil
}

func date(text string) (*time.Time, error) {
	t, err := meet.ParseDate(text)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrInvalidFilter, strings.TrimSpace(text))
	}
	return &t, nil
}

func values(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// split breaks expr on whitespace outside double quotes and drops the
// quotes.
func split(expr string) ([]string, error) {
	var (
		terms   []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range expr {
		switch {
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			if current.Len() > 0 {
				terms = append(terms, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidFilter, expr)
	}
	if current.Len() > 0 {
		terms = append(terms, current.String())
	}
	return terms, nil
}
