package schedule

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"lessoncal/internal/model"
	"lessoncal/internal/timemath"
)

// ScheduleQueryService answers read-only questions over both collections.
// Nothing is cached; every call reflects the state at the time of the call.
type ScheduleQueryService struct {
	b *Book
}

// AgendaFor returns the bookings on date, sorted by start time.
func (q *ScheduleQueryService) AgendaFor(date string) []model.AgendaEntry {
	return slices.Collect(q.b.Bookings().ByDate(date))
}

// MonthMarkers reports, per day number, whether that day has a booking.
// Days without bookings are absent.
func (q *ScheduleQueryService) MonthMarkers(year int, month time.Month) map[int]bool {
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))

	b := q.b
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[int]bool)
	for _, bk := range b.bookings {
		if !strings.HasPrefix(bk.Date, prefix) {
			continue
		}
		d, err := timemath.ParseDate(bk.Date)
		if err != nil {
			continue
		}
		out[d.Day()] = true
	}
	return out
}

// Four-digit years only; rrule-go cannot expand year 0 or earlier.
const (
	minYear = 1
	maxYear = 9999
)

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Progress counts the student's bookings in the given month against their
// monthly target and lists the month's dates on the student's weekday.
// It only reports; it never creates bookings.
func (q *ScheduleQueryService) Progress(studentID string, year int, month time.Month) (model.Progress, error) {
	if month < time.January || month > time.December {
		return model.Progress{}, &ValidationError{Field: "month", Message: "月は1から12で指定してください。"}
	}
	if year < minYear || year > maxYear {
		return model.Progress{}, &ValidationError{Field: "year", Message: "年は1から9999で指定してください。"}
	}

	b := q.b
	b.mu.Lock()
	student, ok := b.findStudent(studentID)
	if !ok {
		b.mu.Unlock()
		return model.Progress{}, fmt.Errorf("%w: student %s", ErrNotFound, studentID)
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	booked := make([]string, 0)
	for _, bk := range b.bookings {
		if bk.StudentID == studentID && strings.HasPrefix(bk.Date, prefix) {
			booked = append(booked, bk.Date)
		}
	}
	b.mu.Unlock()
	slices.Sort(booked)

	weekdayDates, err := weekdayDatesIn(student.Weekday, year, month)
	if err != nil {
		return model.Progress{}, err
	}

	return model.Progress{
		StudentID:    studentID,
		Year:         year,
		Month:        int(month),
		Booked:       len(booked),
		Target:       student.LessonsPerMonth,
		WeekdayDates: weekdayDates,
		BookedDates:  booked,
	}, nil
}

func weekdayDatesIn(label string, year int, month time.Month) ([]string, error) {
	wd, ok := model.WeekdayOf(label)
	if !ok {
		return nil, fmt.Errorf("schedule: unknown weekday %q", label)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart:   first,
		Until:     last,
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: weekday rule: %w", err)
	}

	occ := r.All()
	dates := make([]string, 0, len(occ))
	for _, t := range occ {
		dates = append(dates, timemath.FormatDate(t))
	}
	return dates, nil
}
