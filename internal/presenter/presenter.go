// Package presenter turns entries into the rows and table printed by `bday list`.
package presenter

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/engine"
)

// Row holds the cells of one line of the list, already formatted.
type Row struct {
	Index int
	Name  string
	Date  string
	Age   string
	In    string
}

// Rows sorts a copy of entries, keeps the first limit of them (all when limit is 0)
// and formats each one relative to now. now must be in the viewer's zone.
func Rows(entries []engine.Entry, limit int, now time.Time) []Row {
	sorted := make([]engine.Entry, len(entries))
	copy(sorted, entries)
	engine.SortEntries(sorted)

	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	rows := make([]Row, 0, len(sorted))
	for i, e := range sorted {
		rows = append(rows, Row{
			Index: i + 1,
			Name:  e.Name,
			Date:  e.Date.Display(),
			Age:   Age(e, now),
			In:    In(e, now),
		})
	}
	return rows
}

// Age renders "previous → next" for entries with a known birth year, "?" otherwise.
// The next age is counted in the year of the next anniversary, or the current year
// on the anniversary itself.
func Age(e engine.Entry, now time.Time) string {
	birthYear, ok := e.Date.Year()
	if !ok {
		return config.AgeUnknown
	}

	year := now.Year()
	if !e.IsToday() {
		zone := e.Timezone
		if zone == nil {
			zone = now.Location()
		}
		// Read the year where the anniversary happens; the viewer may still be on
		// 31 December when it starts.
		year = e.NextOccurrence.In(zone).Year()
	}

	next := year - birthYear
	return fmt.Sprintf(config.FormatAge, next-1, next)
}

// In renders the time left until the next anniversary, or "Today!".
func In(e engine.Entry, now time.Time) string {
	if e.IsToday() {
		return config.InToday
	}
	return Humanize(now, e.NextOccurrence)
}

// Humanize describes the signed duration from now to then: "in 3 weeks", "2 months ago".
func Humanize(now, then time.Time) string {
	future := !then.Before(now)
	return humanize.CustomRelTime(now, then, config.LabelFuture, config.LabelPast, magnitudes(future))
}

// magnitudes builds the humanize buckets. The label goes before the amount for the
// future ("in 2 days") and after it for the past ("2 days ago").
func magnitudes(future bool) []humanize.RelTimeMagnitude {
	f := func(amount string) string {
		if future {
			return "%s " + amount
		}
		return amount + " %s"
	}
	return []humanize.RelTimeMagnitude{
		{D: time.Second, Format: "now", DivBy: time.Second},
		{D: 2 * time.Second, Format: f("1 second"), DivBy: 1},
		{D: time.Minute, Format: f("%d seconds"), DivBy: time.Second},
		{D: 2 * time.Minute, Format: f("1 minute"), DivBy: 1},
		{D: time.Hour, Format: f("%d minutes"), DivBy: time.Minute},
		{D: 2 * time.Hour, Format: f("1 hour"), DivBy: 1},
		{D: humanize.Day, Format: f("%d hours"), DivBy: time.Hour},
		{D: 2 * humanize.Day, Format: f("1 day"), DivBy: 1},
		{D: humanize.Week, Format: f("%d days"), DivBy: humanize.Day},
		{D: 2 * humanize.Week, Format: f("1 week"), DivBy: 1},
		{D: humanize.Month, Format: f("%d weeks"), DivBy: humanize.Week},
		{D: 2 * humanize.Month, Format: f("1 month"), DivBy: 1},
		{D: humanize.Year, Format: f("%d months"), DivBy: humanize.Month},
		{D: 2 * humanize.Year, Format: f("1 year"), DivBy: 1},
		{D: math.MaxInt64, Format: f("%d years"), DivBy: humanize.Year},
	}
}

// Render writes rows as a bordered table with the columns #, Name, Date, Age, In.
func Render(w io.Writer, rows []Row) error {
	t := table.NewWriter()

	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	t.AppendHeader(table.Row{config.ColIndex, config.ColName, config.ColDate, config.ColAge, config.ColIn})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Index, r.Name, r.Date, r.Age, r.In})
	}

	if _, err := io.WriteString(w, t.Render()+"\n"); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWriteOutput, err)
	}
	return nil
}
