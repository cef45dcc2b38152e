package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/datespec"
	"golang.org/x/text/unicode/norm"
)

// StoredEntry is a birthday as persisted in the configuration file.
type StoredEntry struct {
	// Name is the display name. Never empty.
	Name string

	// Date is the birthday; the year may be unknown.
	Date datespec.DateSpec

	// Timezone is the IANA zone name exactly as the user typed it.
	// Empty means the viewer's local zone.
	Timezone string

	// Extra holds keys of the stored table this program does not know about,
	// so that they survive a load/save cycle.
	Extra map[string]any
}

// NewStoredEntry validates and normalises a record built from user input.
func NewStoredEntry(name string, date datespec.DateSpec, timezone string) (StoredEntry, error) {
	name = NormalizeName(name)
	if name == "" {
		return StoredEntry{}, errors.New(config.ErrEntryName)
	}
	if date.IsZero() {
		return StoredEntry{}, errors.New(config.ErrEntryDate)
	}
	return StoredEntry{Name: name, Date: date, Timezone: strings.TrimSpace(timezone)}, nil
}

// NormalizeName trims surrounding space and converts the name to Unicode NFC so that
// visually identical names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Entry is a StoredEntry enriched with its surrounding anniversaries.
type Entry struct {
	Name string
	Date datespec.DateSpec

	// Timezone is the entry's zone; nil means the viewer's local zone.
	Timezone *time.Location

	// PrevOccurrence is the end (23:59:59 in the entry's zone) of the most recent past
	// anniversary, in the viewer's zone. Zero when the anniversary is today.
	PrevOccurrence time.Time

	// NextOccurrence is the start (00:00:00 in the entry's zone) of the next
	// anniversary, in the viewer's zone. Zero when the anniversary is today.
	// This is the primary sorting key of the list.
	NextOccurrence time.Time
}

// IsToday reports whether the anniversary falls on the current day in the entry's zone.
func (e Entry) IsToday() bool {
	return e.NextOccurrence.IsZero()
}

// ZoneName returns the entry's zone name, or "" when it follows the viewer.
func (e Entry) ZoneName() string {
	if e.Timezone == nil {
		return ""
	}
	return e.Timezone.String()
}

// NewEntry converts a stored record. now is the current instant and viewer the
// viewer's local zone. The only failure is an unknown zone name.
func NewEntry(stored StoredEntry, now time.Time, viewer *time.Location) (Entry, error) {
	var tz *time.Location
	if stored.Timezone != "" {
		loc, err := LookupZone(stored.Timezone)
		if err != nil {
			return Entry{}, err
		}
		tz = loc
	}

	zone := viewer
	if tz != nil {
		zone = tz
	}

	entry := Entry{
		Name:     stored.Name,
		Date:     stored.Date,
		Timezone: tz,
	}
	if prev, next, ok := Occurrences(stored.Date, now, zone, viewer); ok {
		entry.PrevOccurrence = prev
		entry.NextOccurrence = next
	}
	return entry, nil
}

// NewEntries converts every stored record, stopping at the first unknown zone.
func NewEntries(stored []StoredEntry, clock Clock, viewer *time.Location) ([]Entry, error) {
	now := clock.Now()
	entries := make([]Entry, 0, len(stored))
	for _, s := range stored {
		e, err := NewEntry(s, now, viewer)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", s.Name, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Less orders entries by imminence: today's anniversaries first, then by next
// occurrence, ties broken by name.
func Less(a, b Entry) bool {
	aToday, bToday := a.IsToday(), b.IsToday()
	if aToday != bToday {
		return aToday
	}
	if !aToday && !a.NextOccurrence.Equal(b.NextOccurrence) {
		return a.NextOccurrence.Before(b.NextOccurrence)
	}
	return NormalizeName(a.Name) < NormalizeName(b.Name)
}

// SortEntries sorts in place using Less.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
}
