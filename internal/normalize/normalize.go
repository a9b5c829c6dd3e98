// Package normalize holds the tolerant scalar and date parsing used when
// ingesting records from older exports and hand-edited data. Parsing never
// fails: bad numbers become 0 and bad dates are reported as unparseable so
// callers can exclude them from date-ordered computations.
package normalize

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Float is a float64 that unmarshals leniently. It accepts a JSON number,
// a quoted number ("150000"), null, or garbage, defaulting to 0 instead of
// returning an error.
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	*f = Float(parseNumber(data))
	return nil
}

// Int is an int that unmarshals leniently, with the same rules as Float.
// Fractional values are truncated.
type Int int

func (i *Int) UnmarshalJSON(data []byte) error {
	*i = Int(parseNumber(data))
	return nil
}

func parseNumber(data []byte) float64 {
	raw := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(data), `"`)))
	if raw == "" || raw == "null" {
		return 0
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// dateLayouts are tried in order. ISO forms first, then the DD/MM/YYYY
// format carried over from older exports.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// ParseDate parses a record date string, trying ISO layouts before the
// legacy DD/MM/YYYY form. The second return value reports whether the
// string was parseable; callers exclude unparseable dates from ordering
// rather than treating them as the zero time.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if at, err := time.Parse(layout, trimmed); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the number of whole days from one instant to a later
// one, floored. A later "from" than "to" yields a negative count.
func DaysBetween(from time.Time, to time.Time) int {
	diff := to.Sub(from)
	days := int(diff.Hours() / 24)
	if diff < 0 && diff.Hours()/24 != float64(days) {
		days--
	}
	return days
}
