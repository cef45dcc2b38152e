package datespec

import (
	"fmt"
	"time"
)

// MarshalText encodes the canonical form so that TOML stores it as a string.
func (d DateSpec) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts every Parse grammar. A TOML date literal reaches us as an
// RFC3339 timestamp; its calendar part is kept.
func (d *DateSpec) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		t, terr := time.Parse(time.RFC3339, string(text))
		if terr != nil {
			return err
		}
		parsed, err = NewWithYear(t.Day(), t.Month(), t.Year())
		if err != nil {
			return err
		}
	}
	*d = parsed
	return nil
}

// Value adapts DateSpec to the flag.Value interface so that command-line parsers
// report bad dates as usage errors.
type Value struct {
	spec DateSpec
	set  bool
}

// Set parses s and stores the result.
func (v *Value) Set(s string) error {
	d, err := Parse(s)
	if err != nil {
		return err
	}
	v.spec, v.set = d, true
	return nil
}

// String returns the canonical form, or "" when unset.
func (v *Value) String() string {
	if v == nil || !v.set {
		return ""
	}
	return v.spec.String()
}

// Get returns the parsed DateSpec and whether Set succeeded.
func (v *Value) Get() (DateSpec, bool) {
	return v.spec, v.set
}
