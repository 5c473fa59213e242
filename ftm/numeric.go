package ftm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts lists the accepted ISO prefixes, longest first. Partial
// dates snap to the start of their period.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate interprets an FtM date value as a point in time, UTC when
// the value carries no offset.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

var numberPattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// ToNumber casts a raw value into the float indexed for sorting and
// aggregation: dates become epoch seconds, numbers parse leniently with
// thousands separators stripped. Values of non-numeric types and
// uncastable values report false.
func (t Type) ToNumber(value string) (float64, bool) {
	if !t.Numeric {
		return 0, false
	}
	if t.Name == TypeDate.Name {
		parsed, ok := ParseDate(value)
		if !ok {
			return 0, false
		}

		return float64(parsed.Unix()), true
	}

	match := numberPattern.FindString(strings.ReplaceAll(value, ",", ""))
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}
