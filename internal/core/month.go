package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a canonical "YYYY-MM" string. Lexicographic order equals
// chronological order for well formed values.
type Month string

var shortMonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ParseMonth validates and normalizes s into a Month.
func ParseMonth(s string) (Month, error) {
	m := Month(strings.TrimSpace(s))
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("%w: %q", err, s)
	}
	return m, nil
}

// MonthOf builds the Month for year and month number (1-12).
func MonthOf(year, month int) Month {
	return Month(fmt.Sprintf("%04d-%02d", year, month))
}

// MonthOfTime returns the Month a point in time falls in.
func MonthOfTime(t time.Time) Month {
	return MonthOf(t.Year(), int(t.Month()))
}

func (m Month) Validate() error {
	s := string(m)
	if len(s) != 7 || s[4] != '-' {
		return ErrInvalidMonth
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y < 1 {
		return ErrInvalidMonth
	}
	n, err := strconv.Atoi(s[5:])
	if err != nil || n < 1 || n > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Valid reports whether m is a well formed "YYYY-MM" value.
func (m Month) Valid() bool {
	return m.Validate() == nil
}

// Year returns the year part, or 0 for a malformed month.
func (m Month) Year() int {
	if !m.Valid() {
		return 0
	}
	y, _ := strconv.Atoi(string(m)[:4])
	return y
}

// Number returns the month number 1-12, or 0 for a malformed month.
func (m Month) Number() int {
	if !m.Valid() {
		return 0
	}
	n, _ := strconv.Atoi(string(m)[5:])
	return n
}

// MonthPart returns the text after the first '-', which is what the legacy
// dashboard compared against "01".."12". Empty when there is no '-'.
func (m Month) MonthPart() string {
	_, after, ok := strings.Cut(string(m), "-")
	if !ok {
		return ""
	}
	// legacy split('-')[1] stops at the next separator
	before, _, _ := strings.Cut(after, "-")
	return before
}

// Label returns e.g. "January 2025". Malformed months are returned verbatim.
func (m Month) Label() string {
	if !m.Valid() {
		return string(m)
	}
	return time.Month(m.Number()).String() + " " + string(m)[:4]
}

func (m Month) String() string {
	return string(m)
}

// ShortMonthName returns "Jan".."Dec" for n in 1..12.
func ShortMonthName(n int) string {
	if n < 1 || n > 12 {
		return ""
	}
	return shortMonthNames[n-1]
}
