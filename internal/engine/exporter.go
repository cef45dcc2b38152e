package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/tartampluch/bday/internal/config"
)

// Exporter renders stored birthdays as an iCalendar document.
type Exporter struct {
	Clock Clock
	// Viewer is the zone used for entries without their own zone.
	Viewer *time.Location
}

// Generate builds the calendar. Each entry yields all-day events for the previous,
// current and next year in its zone, never before a known birth year.
func (x *Exporter) Generate(ctx context.Context, stored []StoredEntry) ([]byte, error) {
	now := x.Clock.Now()

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, s := range stored {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		zone := x.Viewer
		if s.Timezone != "" {
			loc, err := LookupZone(s.Timezone)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", s.Name, err)
			}
			zone = loc
		}

		for _, e := range buildEvents(s, now.In(zone).Year()) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgExportDone,
		config.LogKeyComponent, config.CompExporter,
		config.LogKeyCount, len(cal.Children))
	return buf.Bytes(), nil
}

// buildEvents creates the yearly events around currentYear for one entry.
func buildEvents(s StoredEntry, currentYear int) []*ical.Event {
	birthYear, yearKnown := s.Date.Year()
	uidBase := entryUID(s)

	var events []*ical.Event
	for _, y := range []int{currentYear - 1, currentYear, currentYear + 1} {
		if yearKnown && y < birthYear {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, y, config.ICalDomain))

		summary := fmt.Sprintf(config.SummaryPlain, s.Name)
		if yearKnown && y > birthYear {
			summary = fmt.Sprintf(config.SummaryAge, s.Name, y-birthYear)
		}
		event.Props.SetText(config.PropSummary, summary)

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(safeDate(y, s.Date.Month(), s.Date.Day()))
		event.Props.Set(dtStartProp)

		events = append(events, event)
	}
	return events
}

// entryUID derives a name-based UUID so calendar clients update events in place.
func entryUID(s StoredEntry) string {
	input := fmt.Sprintf(config.FormatHashInput, s.Name, s.Date.String(), config.UIDSalt)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(input)).String()
}
