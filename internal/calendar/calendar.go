// Package calendar lays out month grids. It knows nothing about
// bookings; callers overlay booking presence per day.
package calendar

import (
	"fmt"
	"time"
)

// Cell is one position in a month grid: either leading padding (Blank) or
// a day of the month.
type Cell struct {
	Blank bool `json:"blank"`
	Day   int  `json:"day,omitempty"`
}

// DayView is a Day cell with the markers a renderer needs.
type DayView struct {
	Cell
	Date       string `json:"date,omitempty"`
	HasBooking bool   `json:"hasBooking,omitempty"`
	Selected   bool   `json:"selected,omitempty"`
	Today      bool   `json:"today,omitempty"`
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Layout returns the blank padding cells before the 1st (so the 1st lands
// in its weekday column for a week starting on weekStart) followed by one
// cell per day.
func Layout(year int, month time.Month, weekStart time.Weekday) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	blanks := (int(first.Weekday()) - int(weekStart) + 7) % 7
	days := DaysIn(year, month)

	cells := make([]Cell, 0, blanks+days)
	for i := 0; i < blanks; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, Cell{Day: d})
	}
	return cells
}

// Overlay decorates cells of the given month. hasAny is called once per
// day cell; selected and today are "YYYY-MM-DD" strings.
func Overlay(year int, month time.Month, cells []Cell, hasAny func(date string) bool, selected, today string) []DayView {
	out := make([]DayView, 0, len(cells))
	for _, c := range cells {
		if c.Blank {
			out = append(out, DayView{Cell: c})
			continue
		}
		date := DateKey(year, month, c.Day)
		out = append(out, DayView{
			Cell:       c,
			Date:       date,
			HasBooking: hasAny != nil && hasAny(date),
			Selected:   date == selected,
			Today:      date == today,
		})
	}
	return out
}

// DateKey formats a calendar date as "YYYY-MM-DD".
func DateKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// Shift moves a (year, month) cursor by delta months.
func Shift(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}

// Label renders a month heading such as "2024年6月".
func Label(year int, month time.Month) string {
	return fmt.Sprintf("%d年%d月", year, int(month))
}

// WeekdayHeaders returns the column headers starting at weekStart.
func WeekdayHeaders(labels [7]string, weekStart time.Weekday) []string {
	out := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, labels[(int(weekStart)+i)%7])
	}
	return out
}
