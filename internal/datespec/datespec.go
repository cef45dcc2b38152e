// Package datespec converts between human-friendly birthday strings and DateSpec values.
//
// Three grammars are accepted, selected by the first delimiter found in the input:
//
//	D(D)/M(M)        day and month, year unknown
//	D(D)/M(M)/YYYY   day, month and year
//	YYYY-M(M)-D(D)   ISO order
//
// Year-less dates are validated against a leap year so that 29/02 is accepted.
package datespec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/bday/internal/config"
)

var (
	// ErrInvalidFormat reports input that matches none of the grammars.
	ErrInvalidFormat = errors.New(config.ErrInvalidFormat)
	// ErrInvalidDate reports well-formed input that does not name a real calendar date.
	ErrInvalidDate = errors.New(config.ErrInvalidDate)
)

// DateSpec is a birthday: day, month and an optional year.
// The zero value is not a valid DateSpec; build one with New, NewWithYear or Parse.
type DateSpec struct {
	day     int
	month   time.Month
	year    int
	hasYear bool
}

// New builds a year-less DateSpec. 29 February is accepted.
func New(day int, month time.Month) (DateSpec, error) {
	d := DateSpec{day: day, month: month}
	if !d.valid() {
		return DateSpec{}, fmt.Errorf("%w: %02d/%02d", ErrInvalidDate, day, int(month))
	}
	return d, nil
}

// NewWithYear builds a DateSpec with a known year.
func NewWithYear(day int, month time.Month, year int) (DateSpec, error) {
	d := DateSpec{day: day, month: month, year: year, hasYear: true}
	if !d.valid() {
		return DateSpec{}, fmt.Errorf("%w: %02d/%02d/%d", ErrInvalidDate, day, int(month), year)
	}
	return d, nil
}

// Day returns the day of month.
func (d DateSpec) Day() int { return d.day }

// Month returns the month.
func (d DateSpec) Month() time.Month { return d.month }

// Year returns the year and whether it is known.
func (d DateSpec) Year() (int, bool) { return d.year, d.hasYear }

// HasYear reports whether the year is known.
func (d DateSpec) HasYear() bool { return d.hasYear }

// IsZero reports whether d is the zero value.
func (d DateSpec) IsZero() bool { return d.day == 0 && d.month == 0 }

// String renders the canonical form: DD/MM or DD/MM/YYYY.
func (d DateSpec) String() string {
	if d.hasYear {
		return fmt.Sprintf(config.FormatDayMonthYear, d.day, int(d.month), d.year)
	}
	return fmt.Sprintf(config.FormatDayMonth, d.day, int(d.month))
}

// Display renders the day and month name, e.g. "06 June".
func (d DateSpec) Display() string {
	return d.probe().Format(config.DateFormatDisplay)
}

// Equal reports whether both specs name the same day, month and year.
func (d DateSpec) Equal(o DateSpec) bool {
	return d == o
}

// probe returns the date at midnight UTC, substituting the leap probe year when unknown.
func (d DateSpec) probe() time.Time {
	y := config.DefaultLeapYear
	if d.hasYear {
		y = d.year
	}
	return time.Date(y, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d DateSpec) valid() bool {
	if d.month < time.January || d.month > time.December || d.day < 1 || d.day > 31 {
		return false
	}
	t := d.probe()
	return t.Day() == d.day && t.Month() == d.month
}

// Parse reads a DateSpec from one of the accepted grammars.
// Leading zeros are accepted but not required.
func Parse(s string) (DateSpec, error) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, config.SepSlash+config.SepDash)
	if idx < 0 {
		return DateSpec{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	if s[idx:idx+1] == config.SepSlash {
		return parseSlash(s)
	}
	return parseDash(s)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) DateSpec {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func parseSlash(s string) (DateSpec, error) {
	parts := strings.Split(s, config.SepSlash)
	if len(parts) != 2 && len(parts) != 3 {
		return DateSpec{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	day, okDay := unsigned(parts[0])
	month, okMonth := unsigned(parts[1])
	if !okDay || !okMonth {
		return DateSpec{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	if len(parts) == 2 {
		return New(day, time.Month(month))
	}

	year, okYear := signed(parts[2])
	if !okYear {
		return DateSpec{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return NewWithYear(day, time.Month(month), year)
}

func parseDash(s string) (DateSpec, error) {
	parts := strings.Split(s, config.SepDash)
	if len(parts) != 3 {
		return DateSpec{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	year, okYear := unsigned(parts[0])
	month, okMonth := unsigned(parts[1])
	day, okDay := unsigned(parts[2])
	if !okYear || !okMonth || !okDay {
		return DateSpec{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return NewWithYear(day, time.Month(month), year)
}

// unsigned accepts a non-empty run of ASCII digits.
func unsigned(field string) (int, bool) {
	if field == "" {
		return 0, false
	}
	for _, r := range field {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(field)
	return n, err == nil
}

// signed accepts an optional leading minus followed by digits.
func signed(field string) (int, bool) {
	if rest, ok := strings.CutPrefix(field, "-"); ok {
		n, ok := unsigned(rest)
		return -n, ok
	}
	return unsigned(field)
}
