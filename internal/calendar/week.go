// Package calendar derives the two-week workday window shown in the desk grid.
package calendar

import (
	"time"

	"deskbook/internal/models"
)

const (
	// candidateDays is how many consecutive days, starting at the anchor Monday, are considered.
	candidateDays = 10
	// GridDays is the number of workdays that survive weekend filtering.
	GridDays = 8
)

// WeekDate is one column of the grid.
type WeekDate struct {
	Date    string // YYYY-MM-DD
	Weekday string // "Monday"
	Time    time.Time
}

// Label renders the heading used above each grid row.
func (w WeekDate) Label() string {
	return w.Weekday + ", " + w.Date
}

// Clock supplies "today".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// MondayOf returns midnight of the Monday that starts t's ISO week, in t's location.
// Sunday belongs to the week that started six days earlier.
func MondayOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := int(day.Weekday())
	if offset == 0 {
		offset = 7 // Monday-first week
	}
	return day.AddDate(0, 0, 1-offset)
}

// WorkWeeks returns the workdays among the ten days starting at today's Monday:
// Monday to Friday of this week, then Monday to Wednesday of the next.
func WorkWeeks(today time.Time) []WeekDate {
	monday := MondayOf(today)
	dates := make([]WeekDate, 0, GridDays)
	for i := 0; i < candidateDays; i++ {
		d := monday.AddDate(0, 0, i)
		if IsWeekend(d) {
			continue
		}
		dates = append(dates, WeekDate{
			Date:    d.Format(models.DateLayout),
			Weekday: d.Weekday().String(),
			Time:    d,
		})
	}
	return dates
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Contains reports whether date is one of the grid dates.
func Contains(dates []WeekDate, date string) bool {
	for _, d := range dates {
		if d.Date == date {
			return true
		}
	}
	return false
}
