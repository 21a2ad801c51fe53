package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "lessoncal/internal/log"
	"lessoncal/internal/model"
	"lessoncal/internal/timemath"
)

// floatingLayout is an iCalendar DATE-TIME without zone: local wall clock,
// matching how booking times are stored.
const floatingLayout = "20060102T150405"

// ExportConfig controls the generated feed.
type ExportConfig struct {
	// Name is shown by calendar clients (X-WR-CALNAME).
	Name string
	// UIDDomain is appended to booking ids to form event UIDs.
	UIDDomain string
	// Now stamps DTSTAMP; zero means time.Now().
	Now time.Time
}

// Export renders bookings as a VCALENDAR. nameOf resolves a student id to
// the event summary; unresolved ids use model.UnknownStudentName.
//
// Lessons whose end time is not after their start time (e.g. 23:50-00:20)
// end on the following day. Bookings with unparseable fields are skipped.
func Export(bookings []model.Booking, nameOf func(studentID string) (string, bool), cfg ExportConfig) (string, error) {
	if cfg.UIDDomain == "" {
		return "", errors.New("ics export: UIDDomain is empty")
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId("-//lessoncal//lesson bookings//JA")
	cal.SetMethod(ical.MethodPublish)
	if cfg.Name != "" {
		cal.SetXWRCalName(cfg.Name)
	}

	skipped := 0
	for _, bk := range bookings {
		start, end, err := bookingTimes(bk)
		if err != nil {
			appLog.Error("ics export: skipping booking", err, "booking_id", bk.ID)
			skipped++
			continue
		}

		name := model.UnknownStudentName
		if nameOf != nil {
			if n, ok := nameOf(bk.StudentID); ok {
				name = n
			}
		}

		ev := cal.AddEvent(bk.ID + "@" + cfg.UIDDomain)
		ev.SetDtStampTime(now.UTC())
		if !bk.CreatedAt.IsZero() {
			ev.SetCreatedTime(bk.CreatedAt.UTC())
		}
		ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
		ev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
		ev.SetSummary(name)
		ev.SetProperty(ical.ComponentPropertyStatus, string(ical.ObjectStatusConfirmed))
	}

	appLog.Debug("ics export completed", "events", len(bookings)-skipped, "skipped", skipped)
	return cal.Serialize(), nil
}

func bookingTimes(bk model.Booking) (time.Time, time.Time, error) {
	day, err := timemath.ParseDate(bk.Date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	startClock, err := timemath.ParseClock(bk.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endClock, err := timemath.ParseClock(bk.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := day.Add(time.Duration(startClock) * time.Minute)
	end := day.Add(time.Duration(endClock) * time.Minute)
	if endClock <= startClock {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// SafeCalendarName strips characters that break a header value.
func SafeCalendarName(name string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(strings.TrimSpace(name))
}
