package store

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"lessoncal/internal/model"
	"lessoncal/internal/timemath"
)

// CurrentVersion is the record format written by Encode*.
//
// Version 0 is a bare JSON array of records, as exported from the
// browser app's localStorage. Version 1 wraps the array in an envelope.
const CurrentVersion = 1

const (
	kindStudents = "students"
	kindBookings = "bookings"

	// legacyConfirmed is the version-0 spelling of model.StatusConfirmed.
	legacyConfirmed = "確定"
)

type envelope struct {
	Version int             `json:"version"`
	Kind    string          `json:"kind"`
	SavedAt time.Time       `json:"saved_at"`
	Records json.RawMessage `json:"records"`
}

// RecordError reports a malformed record found while decoding.
type RecordError struct {
	Kind   string
	Index  int
	Reason string
}

func (e *RecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("store: %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("store: %s record %d: %s", e.Kind, e.Index, e.Reason)
}

func EncodeStudents(students []model.Student, now time.Time) ([]byte, error) {
	return encode(kindStudents, students, now)
}

func EncodeBookings(bookings []model.Booking, now time.Time) ([]byte, error) {
	return encode(kindBookings, bookings, now)
}

func encode[T any](kind string, records []T, now time.Time) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Version: CurrentVersion,
		Kind:    kind,
		SavedAt: now.UTC(),
		Records: raw,
	})
}

// DecodeStudents decodes and validates a students blob. Empty input
// decodes to an empty collection.
func DecodeStudents(data []byte) ([]model.Student, error) {
	students, version, err := decode[model.Student](kindStudents, data)
	if err != nil {
		return nil, err
	}

	seenID := make(map[string]bool, len(students))
	seenName := make(map[string]bool, len(students))
	for i := range students {
		s := &students[i]
		if version == 0 {
			s.Name = strings.TrimSpace(s.Name)
		}
		if reason := checkStudent(*s); reason != "" {
			return nil, &RecordError{Kind: kindStudents, Index: i, Reason: reason}
		}
		if seenID[s.ID] {
			return nil, &RecordError{Kind: kindStudents, Index: i, Reason: "duplicate id " + s.ID}
		}
		if seenName[s.Name] {
			return nil, &RecordError{Kind: kindStudents, Index: i, Reason: "duplicate name " + s.Name}
		}
		seenID[s.ID] = true
		seenName[s.Name] = true
	}
	return students, nil
}

// DecodeBookings decodes and validates a bookings blob. Empty input
// decodes to an empty collection.
func DecodeBookings(data []byte) ([]model.Booking, error) {
	bookings, version, err := decode[model.Booking](kindBookings, data)
	if err != nil {
		return nil, err
	}

	seenID := make(map[string]bool, len(bookings))
	seenSlot := make(map[string]bool, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if version == 0 && (b.Status == legacyConfirmed || b.Status == "") {
			b.Status = model.StatusConfirmed
		}
		if reason := checkBooking(*b); reason != "" {
			return nil, &RecordError{Kind: kindBookings, Index: i, Reason: reason}
		}
		slot := b.Date + " " + b.StartTime
		if seenID[b.ID] {
			return nil, &RecordError{Kind: kindBookings, Index: i, Reason: "duplicate id " + b.ID}
		}
		if seenSlot[slot] {
			return nil, &RecordError{Kind: kindBookings, Index: i, Reason: "duplicate slot " + slot}
		}
		seenID[b.ID] = true
		seenSlot[slot] = true
	}
	return bookings, nil
}

func decode[T any](kind string, data []byte) ([]T, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []T{}, CurrentVersion, nil
	}

	if trimmed[0] == '[' {
		var records []T
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, 0, &RecordError{Kind: kind, Index: -1, Reason: "legacy array: " + err.Error()}
		}
		return records, 0, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, 0, &RecordError{Kind: kind, Index: -1, Reason: err.Error()}
	}
	if env.Version != CurrentVersion {
		return nil, 0, &RecordError{Kind: kind, Index: -1, Reason: fmt.Sprintf("unsupported version %d", env.Version)}
	}
	if env.Kind != kind {
		return nil, 0, &RecordError{Kind: kind, Index: -1, Reason: fmt.Sprintf("blob holds %q", env.Kind)}
	}

	records := []T{}
	if len(env.Records) > 0 && !bytes.Equal(env.Records, []byte("null")) {
		if err := json.Unmarshal(env.Records, &records); err != nil {
			return nil, 0, &RecordError{Kind: kind, Index: -1, Reason: err.Error()}
		}
	}
	return records, env.Version, nil
}

func checkStudent(s model.Student) string {
	switch {
	case s.ID == "":
		return "missing id"
	case s.Name == "" || s.Name != strings.TrimSpace(s.Name):
		return "name must be non-empty and trimmed"
	case s.DurationMin < 1:
		return "durationMin must be at least 1"
	case s.LessonsPerMonth < 1:
		return "lessonsPerMonth must be at least 1"
	}
	if _, ok := model.WeekdayOf(s.Weekday); !ok {
		return "unknown weekday " + s.Weekday
	}
	if _, err := timemath.ParseClock(s.StartTime); err != nil {
		return err.Error()
	}
	return ""
}

func checkBooking(b model.Booking) string {
	switch {
	case b.ID == "":
		return "missing id"
	case b.StudentID == "":
		return "missing studentId"
	case b.Status != model.StatusConfirmed:
		return "unknown status " + b.Status
	}
	if _, err := timemath.ParseDate(b.Date); err != nil {
		return err.Error()
	}
	if _, err := timemath.ParseClock(b.StartTime); err != nil {
		return err.Error()
	}
	if _, err := timemath.ParseClock(b.EndTime); err != nil {
		return err.Error()
	}
	return ""
}
