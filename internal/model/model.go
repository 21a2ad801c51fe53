package model

import "time"

// StatusConfirmed is the only booking status.
const StatusConfirmed = "confirmed"

// UnknownStudentName is shown for a booking whose student cannot be
// resolved. Cascade delete keeps this from happening in practice.
const UnknownStudentName = "不明"

// Weekdays holds the weekday labels indexed by time.Weekday (Sunday first).
var Weekdays = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// WeekdayOf returns the time.Weekday for a label such as "月".
func WeekdayOf(label string) (time.Weekday, bool) {
	for i, w := range Weekdays {
		if w == label {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// Student is a recurring private-lesson student together with the
// weekly template used when booking their lessons.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Weekday is the intended lesson day. It is informational and is not
	// checked against booking dates.
	Weekday   string `json:"weekday"`
	StartTime string `json:"startTime"`

	DurationMin     int `json:"durationMin"`
	LessonsPerMonth int `json:"lessonsPerMonth"`

	CreatedAt time.Time `json:"createdAt"`
}

// Booking is a single dated lesson occurrence. (Date, StartTime) is unique
// across all bookings.
type Booking struct {
	ID        string `json:"id"`
	StudentID string `json:"studentId"`

	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StudentForm is the raw input for registering a student.
type StudentForm struct {
	Name            string `json:"name" validate:"trimmed_required"`
	Weekday         string `json:"weekday" validate:"required,oneof=日 月 火 水 木 金 土"`
	StartTime       string `json:"startTime" validate:"required,hhmm"`
	DurationMin     int    `json:"durationMin" validate:"min=1"`
	LessonsPerMonth int    `json:"lessonsPerMonth" validate:"min=1"`
}

// AgendaEntry is a booking joined with its student's display name.
type AgendaEntry struct {
	BookingID   string `json:"bookingId"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

// Progress compares a student's bookings in one month against their
// monthly lesson target.
type Progress struct {
	StudentID string `json:"studentId"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`

	Booked int `json:"booked"`
	Target int `json:"target"`

	// WeekdayDates lists the dates in the month falling on the student's
	// weekday; BookedDates the dates already holding one of their bookings.
	WeekdayDates []string `json:"weekdayDates"`
	BookedDates  []string `json:"bookedDates"`
}

// Remaining reports how many more lessons are needed to reach the target.
func (p Progress) Remaining() int {
	if p.Booked >= p.Target {
		return 0
	}
	return p.Target - p.Booked
}
