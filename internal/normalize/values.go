package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// dateLayouts are tried in order. The exports mix ISO, US slash and
// spelled-month forms, sometimes within one column.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2006-01-02 15:04:05",
}

// ParseDate parses a mixed-format date cell. Unparseable input yields nil
// rather than an error; the caller keeps the row and counts the miss.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var numericJunkRe = regexp.MustCompile(`[$%,\s]`)

// ParseFloat coerces a numeric cell, tolerating currency and percent
// symbols, thousands separators and whitespace. Garbage yields nil, never
// zero, so missing values cannot bias downstream averages.
func ParseFloat(s string) *float64 {
	s = numericJunkRe.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseBool coerces the attended flag: 1/0, Yes/No, Y/N, true/false in
// any case. Anything else is nil.
func ParseBool(s string) *bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "y", "true", "t":
		v := true
		return &v
	case "0", "no", "n", "false", "f":
		v := false
		return &v
	default:
		return nil
	}
}

var digitsRe = regexp.MustCompile(`\D`)

// ParticipantID standardizes a participant key to P-000123. A cell with
// no digits cannot be keyed and yields empty, which excludes the row from
// every join.
func ParticipantID(s string) string {
	digits := digitsRe.ReplaceAllString(strings.TrimSpace(s), "")
	if digits == "" {
		return ""
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("P-%06d", n)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ProgramID standardizes a program key to PRG-001 when the cell carries
// digits ("1", "PRG1", "Program 3" all collapse to the same key). Purely
// textual codes like "STEM_NYC" are kept, uppercased with whitespace
// collapsed.
func ProgramID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	digits := digitsRe.ReplaceAllString(s, "")
	if digits != "" {
		n, err := strconv.ParseInt(digits, 10, 64)
		if err == nil {
			return fmt.Sprintf("PRG-%03d", n)
		}
	}
	return whitespaceRe.ReplaceAllString(s, "_")
}

// cityAliases folds known spelling drift to one canonical city.
var cityAliases = map[string]string{
	"Nyc":           "New York",
	"New York City": "New York",
	"Bk":            "Brooklyn",
}

// City trims and title-cases a city cell and folds known aliases. Empty
// input yields nil; the merger substitutes "Unknown" only at output.
func City(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	c := titleCase(s)
	if canonical, ok := cityAliases[c]; ok {
		c = canonical
	}
	return &c
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// CleanString trims a free-text cell, returning nil for blanks.
func CleanString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ClampScore returns nil when v falls outside [lo, hi]. Survey tools
// occasionally emit sentinel values like 99; out-of-range means missing,
// not extreme.
func ClampScore(v *float64, lo, hi float64) *float64 {
	if v == nil || *v < lo || *v > hi {
		return nil
	}
	return v
}
