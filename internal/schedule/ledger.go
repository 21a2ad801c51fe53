package schedule

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	appLog "lessoncal/internal/log"
	"lessoncal/internal/model"
	"lessoncal/internal/timemath"
)

// BookingLedger owns the booking collection. A slot (date, start time)
// holds at most one booking; overlapping lessons with different start
// times are accepted.
type BookingLedger struct {
	b *Book
}

// BookingRequest is the input of BookingLedger.Create.
type BookingRequest struct {
	StudentID string `json:"studentId"`
	Date      string `json:"date" validate:"required,yyyymmdd"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
}

// Create books a slot. Malformed strings fail with a ValidationError. The
// slot is checked before the student: when both are wrong the result is
// ErrConflict, not ErrUnknownStudent.
func (l *BookingLedger) Create(ctx context.Context, req BookingRequest) (model.Booking, error) {
	if ve := validateRequest(req); ve != nil {
		return model.Booking{}, ve
	}

	b := l.b
	b.mu.Lock()
	defer b.mu.Unlock()
	return l.createLocked(ctx, req)
}

// BookStudent books the student's lesson on date. The start time is the
// student's default unless startOverride is set; the end time is always
// start + the student's lesson duration.
func (l *BookingLedger) BookStudent(ctx context.Context, studentID, date, startOverride string) (model.Booking, error) {
	b := l.b
	b.mu.Lock()
	defer b.mu.Unlock()

	student, ok := b.findStudent(studentID)
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: %s", ErrUnknownStudent, studentID)
	}

	start := student.StartTime
	if startOverride != "" {
		start = startOverride
	}
	end, err := timemath.AddMinutes(start, student.DurationMin)
	if err != nil {
		return model.Booking{}, fieldError("startTime", "hhmm")
	}

	req := BookingRequest{StudentID: studentID, Date: date, StartTime: start, EndTime: end}
	if ve := validateRequest(req); ve != nil {
		return model.Booking{}, ve
	}
	return l.createLocked(ctx, req)
}

func (l *BookingLedger) createLocked(ctx context.Context, req BookingRequest) (model.Booking, error) {
	b := l.b
	for _, bk := range b.bookings {
		if bk.Date == req.Date && bk.StartTime == req.StartTime {
			return model.Booking{}, fmt.Errorf("%w: %s %s", ErrConflict, req.Date, req.StartTime)
		}
	}
	if _, ok := b.findStudent(req.StudentID); !ok {
		return model.Booking{}, fmt.Errorf("%w: %s", ErrUnknownStudent, req.StudentID)
	}

	booking := model.Booking{
		ID:        b.newID(),
		StudentID: req.StudentID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    model.StatusConfirmed,
		CreatedAt: b.now(),
	}

	next := append(slices.Clone(b.bookings), booking)
	if err := b.commit(ctx, nil, next); err != nil {
		return model.Booking{}, err
	}

	appLog.Info("booking created",
		"booking_id", booking.ID,
		"student_id", booking.StudentID,
		"date", booking.Date,
		"start", booking.StartTime,
		"end", booking.EndTime,
	)
	return booking, nil
}

func validateRequest(req BookingRequest) *ValidationError {
	return validateStruct(req)
}

func (l *BookingLedger) Get(id string) (model.Booking, error) {
	b := l.b
	b.mu.Lock()
	defer b.mu.Unlock()

	bk, ok := b.findBooking(id)
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	return bk, nil
}

func (l *BookingLedger) Delete(ctx context.Context, id string) error {
	b := l.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.findBooking(id); !ok {
		return fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	next := filter(b.bookings, func(bk model.Booking) bool { return bk.ID != id })
	if err := b.commit(ctx, nil, next); err != nil {
		return err
	}

	appLog.Info("booking deleted", "booking_id", id)
	return nil
}

// ByDate yields the bookings on date joined with student names, in
// ascending start time. The result is a snapshot taken when ByDate is
// called.
func (l *BookingLedger) ByDate(date string) iter.Seq[model.AgendaEntry] {
	b := l.b
	b.mu.Lock()
	entries := make([]model.AgendaEntry, 0)
	for _, bk := range b.bookings {
		if bk.Date != date {
			continue
		}
		name := model.UnknownStudentName
		if s, ok := b.findStudent(bk.StudentID); ok {
			name = s.Name
		}
		entries = append(entries, model.AgendaEntry{
			BookingID:   bk.ID,
			StudentID:   bk.StudentID,
			StudentName: name,
			Date:        bk.Date,
			StartTime:   bk.StartTime,
			EndTime:     bk.EndTime,
		})
	}
	b.mu.Unlock()

	// HH:MM is fixed width, so byte order is time order.
	slices.SortStableFunc(entries, func(x, y model.AgendaEntry) int {
		return strings.Compare(x.StartTime, y.StartTime)
	})
	return slices.Values(entries)
}

// HasAny reports whether any booking falls on date.
func (l *BookingLedger) HasAny(date string) bool {
	b := l.b
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasAnyLocked(date)
}

func (b *Book) hasAnyLocked(date string) bool {
	for _, bk := range b.bookings {
		if bk.Date == date {
			return true
		}
	}
	return false
}

// All returns a copy of every booking ordered by date and start time.
func (l *BookingLedger) All() []model.Booking {
	b := l.b
	b.mu.Lock()
	out := slices.Clone(b.bookings)
	b.mu.Unlock()

	slices.SortFunc(out, func(x, y model.Booking) int {
		if c := strings.Compare(x.Date, y.Date); c != 0 {
			return c
		}
		return strings.Compare(x.StartTime, y.StartTime)
	})
	return out
}

func (l *BookingLedger) Count() int {
	b := l.b
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bookings)
}
