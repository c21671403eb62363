package core

import (
	"fmt"
	"time"

	// Zone rules travel with the binary; containers often lack /usr/share/zoneinfo.
	_ "time/tzdata"
)

// Calendar maps instants to logical days in one fixed zone.
type Calendar struct {
	loc *time.Location
}

// Day is a calendar date in the calendar's zone. Its zero value is not usable;
// obtain days from a Calendar.
type Day struct {
	year  int
	month time.Month
	day   int
	loc   *time.Location
}

// NewCalendar returns a calendar for loc. A nil loc means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar resolves an IANA zone name, e.g. "Europe/Moscow".
func LoadCalendar(name string) (Calendar, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Today returns the logical day containing now.
func (c Calendar) Today(now time.Time) Day {
	return c.DayOf(now)
}

// DayOf returns the logical day an instant falls on. The zone's local
// midnight is the boundary, whatever the machine-local zone is.
func (c Calendar) DayOf(t time.Time) Day {
	loc := c.Location()
	y, m, d := t.In(loc).Date()
	return Day{year: y, month: m, day: d, loc: loc}
}

// Date builds a day directly, normalising out-of-range values like time.Date.
func (c Calendar) Date(year int, month time.Month, day int) Day {
	return c.DayOf(time.Date(year, month, day, 12, 0, 0, 0, c.Location()))
}

// Start is the first instant of the day. In zones where a DST change skips
// local midnight, time.Date normalises 00:00 back into the previous day; the
// day then starts at the transition instead.
func (d Day) Start() time.Time {
	loc := d.location()
	t := time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
	if y, m, day := t.In(loc).Date(); y != d.year || m != d.month || day != d.day {
		_, next := t.ZoneBounds()
		t = next
	}
	return t
}

// End is the first instant of the following day (exclusive bound).
func (d Day) End() time.Time {
	return d.Next().Start()
}

// Contains reports whether t falls in [Start, End).
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start()) && t.Before(d.End())
}

func (d Day) Next() Day {
	return d.shift(1)
}

func (d Day) Prev() Day {
	return d.shift(-1)
}

func (d Day) Equal(o Day) bool {
	return d.year == o.year && d.month == o.month && d.day == o.day &&
		d.location().String() == o.location().String()
}

func (d Day) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

func (d Day) Year() int                { return d.year }
func (d Day) Month() time.Month        { return d.month }
func (d Day) Day() int                 { return d.day }
func (d Day) Location() *time.Location { return d.location() }

// String renders the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func (d Day) location() *time.Location {
	if d.loc == nil {
		return time.UTC
	}
	return d.loc
}

// shift moves by whole calendar days. Noon keeps DST gaps out of the way.
func (d Day) shift(days int) Day {
	y, m, day := time.Date(d.year, d.month, d.day+days, 12, 0, 0, 0, d.location()).Date()
	return Day{year: y, month: m, day: day, loc: d.loc}
}
