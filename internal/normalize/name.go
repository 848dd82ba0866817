package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var memberSep = regexp.MustCompile(`\s*[;/&]\s*`)

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitName splits "Last, First" or "First Last" into its parts. A single
// word is taken as the first name.
func SplitName(full string) (first, last string) {
	full = clean(full)
	if i := strings.Index(full, ","); i >= 0 {
		return clean(full[i+1:]), clean(full[:i])
	}

	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// splitMembers splits a relay name field listing its legs in running order.
func splitMembers(s string) []string {
	var out []string
	for _, part := range memberSep.Split(clean(s), -1) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GraduationYear derives the class year from a high school grade in the
// given season, or nil when either is unknown.
func GraduationYear(seasonYear, grade int) *int {
	if seasonYear == 0 || grade < 9 || grade > 12 {
		return nil
	}
	year := seasonYear + (12 - grade)
	return &year
}

// parseWind reads wind readings such as "+1.2", "-0.4", "w:1.1" or
// "2.0 m/s". "NWI" (no wind information) and empty give nil.
func parseWind(s string) *float64 {
	s = strings.ToLower(clean(s))
	s = strings.TrimPrefix(s, "w:")
	s = strings.TrimSpace(strings.TrimSuffix(s, "m/s"))
	if s == "" || s == "nwi" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optional(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
