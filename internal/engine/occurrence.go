package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/datespec"
)

// civil returns the calendar date y-m-d as midnight UTC. Calendar dates in this
// package are always represented this way; their location carries no meaning.
func civil(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// safeDate returns year-month-day, or 28 February when asked for 29 February of a
// non-leap year. Any other invalid date is a programming error: day and month come
// from a validated DateSpec.
func safeDate(year int, month time.Month, day int) time.Time {
	t := civil(year, month, day)
	if t.Day() == day && t.Month() == month {
		return t
	}
	if month == time.February && day == 29 {
		return civil(year, time.February, 28)
	}
	panic(fmt.Sprintf("safeDate: invalid anniversary %02d/%02d", day, int(month)))
}

// Neighbours returns the anniversaries of date surrounding the calendar day of ref
// (read in ref's own location): prev is strictly before it, next strictly after.
// ok is false when ref is the anniversary itself, including 28 February of a
// non-leap year for a 29 February birthday.
func Neighbours(date datespec.DateSpec, ref time.Time) (prev, next time.Time, ok bool) {
	day, month := date.Day(), date.Month()
	ry, rm, rd := ref.Date()
	if day == rd && month == rm {
		return time.Time{}, time.Time{}, false
	}

	today := civil(ry, rm, rd)
	candidate := safeDate(ry, month, day)

	switch {
	case candidate.Before(today):
		return candidate, safeDate(ry+1, month, day), true
	case candidate.After(today):
		return safeDate(ry-1, month, day), candidate, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// Localize places the wall clock hour:min:sec of the calendar date in loc.
//
// When the wall time is skipped by a DST transition, the first valid instant after
// it is returned, or the last valid instant before it when latest is set. When the
// wall time occurs twice, the earlier instant is returned, or the later one when
// latest is set.
func Localize(date time.Time, hour, min, sec int, loc *time.Location, latest bool) time.Time {
	y, m, d := date.Date()
	wall := time.Date(y, m, d, hour, min, sec, 0, time.UTC)

	offsets := zoneOffsets(wall, loc)
	var valid []time.Time
	for _, off := range offsets {
		c := wall.Add(-time.Duration(off) * time.Second).In(loc)
		if sameWall(c, wall) {
			valid = append(valid, c)
		}
	}

	if len(valid) > 0 {
		sort.Slice(valid, func(i, j int) bool { return valid[i].Before(valid[j]) })
		if latest {
			return valid[len(valid)-1]
		}
		return valid[0]
	}

	// Gap: interpreting the wall time with the largest offset lands just before the
	// transition, whose instant is the end of that zone period.
	maxOff := offsets[0]
	for _, off := range offsets[1:] {
		maxOff = max(maxOff, off)
	}
	before := wall.Add(-time.Duration(maxOff) * time.Second).In(loc)
	_, transition := before.ZoneBounds()

	slog.Debug(config.MsgZoneGap,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyZone, loc.String(),
		config.LogKeyWall, wall.Format(time.DateTime))

	if transition.IsZero() {
		return time.Date(y, m, d, hour, min, sec, 0, loc)
	}
	if latest {
		return transition.Add(-time.Second).In(loc)
	}
	return transition.In(loc)
}

// zoneOffsets lists the distinct UTC offsets (seconds) loc uses within a day of wall.
func zoneOffsets(wall time.Time, loc *time.Location) []int {
	var offsets []int
	for _, probe := range []time.Time{
		wall.Add(-config.ZoneSearchWindow),
		wall,
		wall.Add(config.ZoneSearchWindow),
	} {
		_, off := probe.In(loc).Zone()
		seen := false
		for _, o := range offsets {
			if o == off {
				seen = true
				break
			}
		}
		if !seen {
			offsets = append(offsets, off)
		}
	}
	return offsets
}

func sameWall(t, wall time.Time) bool {
	ty, tm, td := t.Date()
	wy, wm, wd := wall.Date()
	return ty == wy && tm == wm && td == wd &&
		t.Hour() == wall.Hour() && t.Minute() == wall.Minute() && t.Second() == wall.Second()
}

// Occurrences lifts Neighbours to instants. The reference day is the calendar day of
// now in zone; prev is the end of that anniversary (23:59:59) and next its start
// (00:00:00), both in zone and expressed in viewer. ok is false on the anniversary.
func Occurrences(date datespec.DateSpec, now time.Time, zone, viewer *time.Location) (prev, next time.Time, ok bool) {
	prevDay, nextDay, ok := Neighbours(date, now.In(zone))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	prev = Localize(prevDay, config.EndOfDayHour, config.EndOfDayMinute, config.EndOfDaySecond, zone, true).In(viewer)
	next = Localize(nextDay, 0, 0, 0, zone, false).In(viewer)
	return prev, next, true
}
