package mark

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format rebuilds the text of m from its value and layout.
// For any string s accepted by Parse, Format(Parse(s)) == s.
func Format(m Mark) string {
	l := m.Layout
	scale := pow10(l.Decimals)

	var b strings.Builder
	b.WriteString(l.Prefix)

	switch l.Style {
	case StyleSeconds, StyleMinutes, StyleHours:
		units := int64(math.Round(m.Value * float64(scale)))
		whole, frac := units/scale, units%scale
		switch l.Style {
		case StyleSeconds:
			fmt.Fprintf(&b, "%0*d", l.Lead, whole)
		case StyleMinutes:
			fmt.Fprintf(&b, "%0*d:%02d", l.Lead, whole/60, whole%60)
		case StyleHours:
			fmt.Fprintf(&b, "%0*d:%02d:%02d", l.Lead, whole/3600, whole%3600/60, whole%60)
		}
		writeFraction(&b, frac, l.Decimals)

	case StyleFeetDash, StyleFeetQuote:
		// Work in whole units of the last printed inch digit so rounding
		// carries into the foot instead of printing 12 inches.
		units := int64(math.Round(m.Value / MetersPerInch * float64(scale)))
		perFoot := 12 * scale
		feet, rest := units/perFoot, units%perFoot
		if l.Style == StyleFeetDash {
			fmt.Fprintf(&b, "%0*d-%0*d", l.Lead, feet, l.Inch, rest/scale)
		} else {
			fmt.Fprintf(&b, "%0*d%s%s%0*d", l.Lead, feet, l.Foot, l.Gap, l.Inch, rest/scale)
		}
		writeFraction(&b, rest%scale, l.Decimals)
		b.WriteString(l.InchMark)

	case StyleMetric:
		units := int64(math.Round(m.Value * float64(scale)))
		whole, frac := units/scale, units%scale
		if l.Grouped {
			b.WriteString(group(whole))
		} else {
			fmt.Fprintf(&b, "%0*d", l.Lead, whole)
		}
		writeFraction(&b, frac, l.Decimals)
		b.WriteString(l.Unit)

	default:
		return m.Display
	}

	b.WriteString(l.Suffix)
	return b.String()
}

// FormatSeconds renders a time in seconds as SS.ss or M:SS.ss.
func FormatSeconds(v float64) string {
	units := int64(math.Round(v * 100))
	whole, frac := units/100, units%100
	if whole >= 60 {
		return fmt.Sprintf("%d:%02d.%02d", whole/60, whole%60, frac)
	}
	return fmt.Sprintf("%d.%02d", whole, frac)
}

// FormatMeters renders a distance in meters with two decimals.
func FormatMeters(v float64) string {
	return fmt.Sprintf("%.2fm", v)
}

func writeFraction(b *strings.Builder, frac int64, decimals int) {
	if decimals == 0 {
		return
	}
	fmt.Fprintf(b, ".%0*d", decimals, frac)
}

func group(n int64) string {
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func pow10(n int) int64 {
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
